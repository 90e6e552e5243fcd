package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess marks access tokens in the "type" claim.
const TokenTypeAccess = "access"

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	AccountID   int64    `json:"aid"`
	Authorities []string `json:"authorities,omitempty"`
	Type        string   `json:"type"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for generating and validating JWTs.
type TokenService interface {
	// GenerateAccessToken creates a signed access token for an account.
	GenerateAccessToken(accountID int64, authorities []string) (string, error)

	// ValidateToken checks the signature, expiry and type of a token string.
	ValidateToken(tokenString string) (*Claims, error)

	// AccessTokenDuration returns the configured access token lifetime.
	AccessTokenDuration() time.Duration
}
