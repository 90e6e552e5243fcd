package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"renthouse/config"
	"renthouse/internal/delivery/api/response"
	"renthouse/internal/delivery/api/validator"
	deliverycontext "renthouse/internal/delivery/context"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/errors"
	"renthouse/internal/usecase"
	"renthouse/internal/util"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	Config    *config.Config
	Logger    *slog.Logger
}

// AvatarUploadField is the multipart field carrying the avatar image.
const AvatarUploadField = "file"

// AccountHandler serves the authenticated account endpoints.
type AccountHandler struct {
	accountUC       usecase.AccountUsecase
	maxAvatarUpload int64
	logger          *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler.
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	var maxAvatarUpload int64
	if params.Config != nil && params.Config.AvatarStorage != nil {
		maxAvatarUpload = params.Config.AvatarStorage.MaxUploadSize
	}

	return &AccountHandler{
		accountUC:       params.AccountUC,
		maxAvatarUpload: maxAvatarUpload,
		logger:          params.Logger,
	}
}

// UpdateProfileRequest represents the request body for a profile update.
type UpdateProfileRequest struct {
	NickName     string `json:"nickName" validate:"required,max=32"`
	Avatar       string `json:"avatar" validate:"max=512"`
	Introduction string `json:"introduction" validate:"max=500"`
}

// UpdateAvatarRequest represents the request body for an avatar update.
type UpdateAvatarRequest struct {
	Avatar string `json:"avatar" validate:"required,max=512"`
}

// ChangePasswordRequest represents the request body for a password change.
// OldPassword may be empty for accounts that never set a password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}

// CreateAdminRequest represents the request body for creating an admin.
type CreateAdminRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

// GetMe returns the caller's own account.
func (h *AccountHandler) GetMe(c echo.Context) error {
	caller, ok := deliverycontext.GetCaller(c)
	if !ok {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	account, err := h.accountUC.FindByID(c.Request().Context(), caller.AccountID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newAccountResponse(account))
}

// UpdateProfile overwrites the caller's nickname, avatar and introduction.
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	caller, ok := deliverycontext.GetCaller(c)
	if !ok {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	account, err := h.accountUC.UpdateProfile(c.Request().Context(), caller.AccountID, &usecase.UpdateProfileInput{
		NickName:     req.NickName,
		Avatar:       req.Avatar,
		Introduction: req.Introduction,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newAccountResponse(account))
}

// UpdateAvatar sets the caller's avatar.
func (h *AccountHandler) UpdateAvatar(c echo.Context) error {
	caller, ok := deliverycontext.GetCaller(c)
	if !ok {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	var req UpdateAvatarRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid avatar input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	if err := h.accountUC.UpdateAvatar(c.Request().Context(), caller, req.Avatar); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"avatar": req.Avatar})
}

// UploadAvatar accepts a multipart image and makes it the caller's avatar.
func (h *AccountHandler) UploadAvatar(c echo.Context) error {
	caller, ok := deliverycontext.GetCaller(c)
	if !ok {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	fileHeader, err := c.FormFile(AvatarUploadField)
	if err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Avatar file is required")
	}
	if h.maxAvatarUpload > 0 && fileHeader.Size > h.maxAvatarUpload {
		tooLarge := domainerrors.ErrAvatarTooLarge

		return response.Error(c, tooLarge.HTTPCode(), tooLarge.ErrorCode(), tooLarge.Message(),
			map[string]string{"maxSize": util.FormatBytes(h.maxAvatarUpload)})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open avatar upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "failed to read avatar upload")
	}

	avatarURL, err := h.accountUC.UploadAvatar(c.Request().Context(), caller, data)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, map[string]string{"avatar": avatarURL})
}

// ChangePassword rotates the caller's password.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	caller, ok := deliverycontext.GetCaller(c)
	if !ok {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	err := h.accountUC.ChangePassword(c.Request().Context(), caller, &usecase.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password changed"})
}

// GetByID returns another account's public view.
func (h *AccountHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return response.ValidationFailed(c, map[string]string{"id": "numeric"})
	}

	account, err := h.accountUC.FindByID(c.Request().Context(), id)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newPublicAccountResponse(account))
}

// FindByNickName looks an account up by its display name.
func (h *AccountHandler) FindByNickName(c echo.Context) error {
	nickName := c.QueryParam("nickName")
	if nickName == "" {
		return response.ValidationFailed(c, map[string]string{"nickName": "required"})
	}

	account, err := h.accountUC.FindByNickName(c.Request().Context(), nickName)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newPublicAccountResponse(account))
}

// CreateAdmin creates a password-less administrator account.
func (h *AccountHandler) CreateAdmin(c echo.Context) error {
	var req CreateAdminRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid admin input")
	}
	if err := c.Validate(&req); err != nil {
		return response.ValidationFailed(c, validator.FieldErrors(err))
	}

	account, err := h.accountUC.CreateAdminByPhone(c.Request().Context(), req.PhoneNumber)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.logger.Info("Admin account created", slog.Int64("accountID", account.ID))

	return response.Success(c, http.StatusCreated, newAccountResponse(account))
}
