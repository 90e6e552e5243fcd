package entity

import "time"

// ResetTokenTTL is how long a password-reset token stays redeemable.
const ResetTokenTTL = 900 * time.Second
