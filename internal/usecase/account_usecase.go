// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"renthouse/internal/domain/entity"
)

// Caller identifies the authenticated account on whose behalf an operation runs.
type Caller struct {
	AccountID   int64
	Authorities entity.Authorities
}

// IsAuthenticated reports whether the caller carries an account.
func (c Caller) IsAuthenticated() bool {
	return c.AccountID > 0
}

// HasAuthority reports whether the caller holds the given authority.
func (c Caller) HasAuthority(authority entity.Authority) bool {
	return c.Authorities.Contains(authority)
}

// --- Input DTOs ---

// RegisterByPhoneInput defines the data required to register an account.
type RegisterByPhoneInput struct {
	PhoneNumber string
	Password    string
	Roles       []entity.RoleName
}

// UpdateProfileInput holds the fields a profile update overwrites.
type UpdateProfileInput struct {
	NickName     string
	Avatar       string
	Introduction string
}

// ChangePasswordInput defines a password rotation request.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// ResetPasswordInput redeems a reset token for a new password.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// AccountUsecase defines the credential lifecycle operations.
type AccountUsecase interface {
	// RegisterByPhone creates an account with a password and the given roles.
	RegisterByPhone(ctx context.Context, input *RegisterByPhoneInput) (*entity.Account, error)

	// CreateAdminByPhone creates a password-less account holding only ADMIN.
	CreateAdminByPhone(ctx context.Context, phoneNumber string) (*entity.Account, error)

	// UpdateProfile overwrites nickname, avatar and introduction.
	UpdateProfile(ctx context.Context, accountID int64, input *UpdateProfileInput) (*entity.Account, error)

	// UpdateAvatar sets the caller's avatar.
	UpdateAvatar(ctx context.Context, caller Caller, avatar string) error

	// UploadAvatar stores an image and makes it the caller's avatar.
	UploadAvatar(ctx context.Context, caller Caller, data []byte) (string, error)

	// ChangePassword rotates the caller's password.
	ChangePassword(ctx context.Context, caller Caller, input *ChangePasswordInput) error

	// GenerateResetToken issues a single-use token redeemable for 900 seconds.
	GenerateResetToken(ctx context.Context, phoneNumber string) (string, error)

	// ResetPasswordByToken burns the token and sets a new password.
	ResetPasswordByToken(ctx context.Context, input *ResetPasswordInput) error

	// FindByID returns the account with its authorities.
	FindByID(ctx context.Context, id int64) (*entity.Account, error)

	// FindByPhoneNumber returns the account with its authorities.
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Account, error)

	// FindByNickName returns the account with its authorities.
	FindByNickName(ctx context.Context, nickName string) (*entity.Account, error)
}
