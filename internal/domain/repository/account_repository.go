// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"renthouse/internal/domain/entity"
)

// ErrAccountNotFound is returned by narrow updates that matched no row.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines the persistence operations for accounts.
// Lookups return a nil account and a nil error when nothing matches.
type AccountRepository interface {
	// FindByID retrieves a single account by its identifier.
	FindByID(ctx context.Context, id int64) (*entity.Account, error)

	// FindByPhoneNumber retrieves a single account by its phone number.
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Account, error)

	// FindByNickName retrieves a single account by its display name.
	FindByNickName(ctx context.Context, nickName string) (*entity.Account, error)

	// Create persists a new account and assigns its ID and timestamps.
	// A unique violation is reported as a domain duplicate error.
	Create(ctx context.Context, account *entity.Account) error

	// Update saves every mutable column of an existing account.
	Update(ctx context.Context, account *entity.Account) error

	// UpdatePasswordHash overwrites only the stored password digest.
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error

	// UpdateAvatar overwrites only the avatar.
	UpdateAvatar(ctx context.Context, id int64, avatar string) error
}
