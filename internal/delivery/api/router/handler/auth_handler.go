// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"renthouse/internal/delivery/api/response"
	"renthouse/internal/delivery/api/validator"
	"renthouse/internal/domain/entity"
	"renthouse/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	AuthUC    usecase.AuthUsecase
	Logger    *slog.Logger
}

// AuthHandler serves the unauthenticated credential endpoints.
type AuthHandler struct {
	accountUC usecase.AccountUsecase
	authUC    usecase.AuthUsecase
	logger    *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		accountUC: params.AccountUC,
		authUC:    params.AuthUC,
		logger:    params.Logger,
	}
}

// RegisterRequest represents the request body for self-registration.
// ADMIN cannot be self-assigned.
type RegisterRequest struct {
	PhoneNumber string   `json:"phoneNumber" validate:"required,phone"`
	Password    string   `json:"password" validate:"required,min=6,maxbytes=72"`
	Roles       []string `json:"roles" validate:"dive,oneof=TENANT LANDLORD"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string           `json:"accessToken"`
	TokenType   string           `json:"tokenType"`
	ExpiresIn   int64            `json:"expiresIn"`
	Account     *AccountResponse `json:"account"`
}

// ResetTokenRequest represents the request body for requesting a reset token.
type ResetTokenRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

// ResetPasswordRequest represents the request body for redeeming a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}

// Register handles self-registration by phone number.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	roles := make([]entity.RoleName, 0, len(req.Roles))
	for _, role := range req.Roles {
		roles = append(roles, entity.RoleName(role))
	}

	account, err := h.accountUC.RegisterByPhone(c.Request().Context(), &usecase.RegisterByPhoneInput{
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Roles:       roles,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newAccountResponse(account))
}

// Login exchanges phone number and password for an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	output, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, &LoginResponse{
		AccessToken: output.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(output.ExpiresIn.Seconds()),
		Account:     newAccountResponse(output.Account),
	})
}

// RequestResetToken issues a reset token. The token is delivered out of band
// through the account event stream, never in the response.
func (h *AuthHandler) RequestResetToken(c echo.Context) error {
	var req ResetTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset token input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	if _, err := h.accountUC.GenerateResetToken(c.Request().Context(), req.PhoneNumber); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusAccepted, map[string]string{"message": "Reset token issued"})
}

// ResetPassword redeems a reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password reset input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	err := h.accountUC.ResetPasswordByToken(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password reset"})
}
