package repository

import (
	"context"
	"time"
)

// ResetTokenStore keeps password-reset tokens in a key-value store with
// expiry. Entries are not durable.
type ResetTokenStore interface {
	// Set stores the phone number under token for ttl.
	Set(ctx context.Context, token, phoneNumber string, ttl time.Duration) error

	// Get returns the phone number stored under token. found is false when
	// the token never existed, expired, or was deleted.
	Get(ctx context.Context, token string) (phoneNumber string, found bool, err error)

	// Delete removes token. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
}
