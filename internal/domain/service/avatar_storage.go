package service

import "context"

// AvatarStorage persists uploaded avatar images.
type AvatarStorage interface {
	// Put stores the image under the account and returns the URL clients
	// should load it from. Only JPEG, PNG and WebP images are accepted.
	Put(ctx context.Context, accountID int64, data []byte) (string, error)
}
