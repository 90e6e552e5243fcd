package usecase

import (
	"context"
	"time"

	"renthouse/internal/domain/entity"
)

// LoginInput defines the data required for an account to log in.
type LoginInput struct {
	PhoneNumber string
	Password    string
}

// LoginOutput returns the access token after a successful login.
type LoginOutput struct {
	AccessToken string
	ExpiresIn   time.Duration
	Account     *entity.Account
}

// AuthUsecase defines the authentication operations.
type AuthUsecase interface {
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
}
