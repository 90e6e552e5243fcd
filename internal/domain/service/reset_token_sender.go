package service

import (
	"context"
	"time"
)

// ResetTokenSender delivers a password reset token to the phone it was issued for.
type ResetTokenSender interface {
	SendResetToken(ctx context.Context, phoneNumber, token string, validFor time.Duration) error
}
