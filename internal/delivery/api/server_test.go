package api

import (
	"context"
	"encoding/json"
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"renthouse/config"
	apimiddleware "renthouse/internal/delivery/api/middleware"
	"renthouse/internal/delivery/api/router"
	"renthouse/internal/delivery/api/router/handler"
	deliverycontext "renthouse/internal/delivery/context"
	"renthouse/internal/domain/entity"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/service"
	"renthouse/internal/errors"
	"renthouse/internal/infra/auth"
	"renthouse/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountUsecase struct {
	mock.Mock
}

func (m *mockAccountUsecase) account(args mock.Arguments) (*entity.Account, error) {
	if account, ok := args.Get(0).(*entity.Account); ok {
		return account, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockAccountUsecase) RegisterByPhone(ctx context.Context, input *usecase.RegisterByPhoneInput) (*entity.Account, error) {
	return m.account(m.Called(ctx, input))
}

func (m *mockAccountUsecase) CreateAdminByPhone(ctx context.Context, phoneNumber string) (*entity.Account, error) {
	return m.account(m.Called(ctx, phoneNumber))
}

func (m *mockAccountUsecase) UpdateProfile(ctx context.Context, accountID int64, input *usecase.UpdateProfileInput) (*entity.Account, error) {
	return m.account(m.Called(ctx, accountID, input))
}

func (m *mockAccountUsecase) UpdateAvatar(ctx context.Context, caller usecase.Caller, avatar string) error {
	return m.Called(ctx, caller, avatar).Error(0)
}

func (m *mockAccountUsecase) UploadAvatar(ctx context.Context, caller usecase.Caller, data []byte) (string, error) {
	args := m.Called(ctx, caller, data)

	return args.String(0), args.Error(1)
}

func (m *mockAccountUsecase) ChangePassword(ctx context.Context, caller usecase.Caller, input *usecase.ChangePasswordInput) error {
	return m.Called(ctx, caller, input).Error(0)
}

func (m *mockAccountUsecase) GenerateResetToken(ctx context.Context, phoneNumber string) (string, error) {
	args := m.Called(ctx, phoneNumber)

	return args.String(0), args.Error(1)
}

func (m *mockAccountUsecase) ResetPasswordByToken(ctx context.Context, input *usecase.ResetPasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *mockAccountUsecase) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	return m.account(m.Called(ctx, id))
}

func (m *mockAccountUsecase) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Account, error) {
	return m.account(m.Called(ctx, phoneNumber))
}

func (m *mockAccountUsecase) FindByNickName(ctx context.Context, nickName string) (*entity.Account, error) {
	return m.account(m.Called(ctx, nickName))
}

type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	args := m.Called(ctx, input)
	if out, ok := args.Get(0).(*usecase.LoginOutput); ok {
		return out, args.Error(1)
	}

	return nil, args.Error(1)
}

type apiFixture struct {
	echo      *echo.Echo
	accountUC *mockAccountUsecase
	authUC    *mockAuthUsecase
	tokens    service.TokenService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.HTTP.MaxRequestBodySize = "100KB"
	cfg.SecretKey.Access = "test-access-secret"
	cfg.AvatarStorage = &config.AvatarStorageConfig{MaxUploadSize: 1 << 20}
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountUC := &mockAccountUsecase{}
	authUC := &mockAuthUsecase{}

	e := newEcho(cfg, logger, router.RouterParams{
		AuthHandler: handler.NewAuthHandler(handler.AuthHandlerParams{
			AccountUC: accountUC,
			AuthUC:    authUC,
			Logger:    logger,
		}),
		AccountHandler: handler.NewAccountHandler(handler.AccountHandlerParams{
			AccountUC: accountUC,
			Config:    cfg,
			Logger:    logger,
		}),
		AuthMiddleware: apimiddleware.NewAuthMiddleware(apimiddleware.AuthMiddlewareParams{
			TokenService: tokens,
			Logger:       logger,
		}),
	})

	return &apiFixture{echo: e, accountUC: accountUC, authUC: authUC, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	return rec
}

func (f *apiFixture) token(t *testing.T, accountID int64, authorities ...entity.Authority) string {
	t.Helper()

	token, err := f.tokens.GenerateAccessToken(accountID, entity.Authorities(authorities).ToStrings())
	require.NoError(t, err)

	return token
}

type envelope struct {
	Data  map[string]any `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return env
}

func sampleAccount() *entity.Account {
	return &entity.Account{
		ID:           7,
		PhoneNumber:  "13800000000",
		Name:         "zfyh13800000000",
		NickName:     "zfyh13800000000",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Authorities:  entity.Authorities{entity.AuthorityTenant},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestServer_HealthCheck(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "ok", env.Data["status"])
	assert.NotEmpty(t, rec.Header().Get(deliverycontext.HeaderXRequestID))
	assert.Equal(t, rec.Header().Get(deliverycontext.HeaderXRequestID), env.Meta.RequestID)
}

func TestServer_Register(t *testing.T) {
	f := newAPIFixture(t)
	f.accountUC.On("RegisterByPhone", mock.Anything, mock.MatchedBy(func(in *usecase.RegisterByPhoneInput) bool {
		return in.PhoneNumber == "13800000000" && in.Password == "secret1" &&
			len(in.Roles) == 1 && in.Roles[0] == entity.RoleTenant
	})).Return(sampleAccount(), nil).Once()

	rec := f.do(t, http.MethodPost, "/auth/register",
		`{"phoneNumber":"13800000000","password":"secret1","roles":["TENANT"]}`, "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "zfyh13800000000", env.Data["nickName"])
	assert.Equal(t, []any{"ROLE_TENANT"}, env.Data["authorities"])
	assert.NotContains(t, rec.Body.String(), "$2a$")
	f.accountUC.AssertExpectations(t)
}

func TestServer_Register_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
		ucErr    error
	}{
		{
			name:     "self-assigned admin",
			body:     `{"phoneNumber":"13800000000","password":"secret1","roles":["ADMIN"]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_FAILED",
		},
		{
			name:     "short password",
			body:     `{"phoneNumber":"13800000000","password":"123"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_FAILED",
		},
		{
			name:     "password over 72 bytes",
			body:     `{"phoneNumber":"13800000000","password":"` + strings.Repeat("密", 72) + `"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_FAILED",
		},
		{
			name:     "duplicate phone",
			body:     `{"phoneNumber":"13800000000","password":"secret1"}`,
			wantCode: http.StatusConflict,
			wantErr:  "DUPLICATE_PHONE",
			ucErr:    errors.Wrap(domainerrors.ErrDuplicatePhone, "phone number already registered"),
		},
		{
			name:     "unexpected failure",
			body:     `{"phoneNumber":"13800000000","password":"secret1"}`,
			wantCode: http.StatusInternalServerError,
			wantErr:  "INTERNAL_ERROR",
			ucErr:    errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			if tt.ucErr != nil {
				f.accountUC.On("RegisterByPhone", mock.Anything, mock.Anything).Return(nil, tt.ucErr).Once()
			}

			rec := f.do(t, http.MethodPost, "/auth/register", tt.body, "")

			assert.Equal(t, tt.wantCode, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
			assert.NotContains(t, rec.Body.String(), "connection reset")
			if tt.ucErr == nil {
				f.accountUC.AssertNotCalled(t, "RegisterByPhone", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestServer_Login(t *testing.T) {
	f := newAPIFixture(t)
	f.authUC.On("Login", mock.Anything, &usecase.LoginInput{PhoneNumber: "13800000000", Password: "secret1"}).
		Return(&usecase.LoginOutput{AccessToken: "jwt", ExpiresIn: 15 * time.Minute, Account: sampleAccount()}, nil).Once()

	rec := f.do(t, http.MethodPost, "/auth/login", `{"phoneNumber":"13800000000","password":"secret1"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "jwt", env.Data["accessToken"])
	assert.Equal(t, "Bearer", env.Data["tokenType"])
	assert.InDelta(t, 900, env.Data["expiresIn"], 0)
}

func TestServer_RequestResetToken_DoesNotEchoToken(t *testing.T) {
	f := newAPIFixture(t)
	f.accountUC.On("GenerateResetToken", mock.Anything, "13800000000").Return("0f8b6c1e-token", nil).Once()

	rec := f.do(t, http.MethodPost, "/auth/password/reset-token", `{"phoneNumber":"13800000000"}`, "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), "0f8b6c1e-token")
}

func TestServer_ResetPassword_InvalidToken(t *testing.T) {
	f := newAPIFixture(t)
	f.accountUC.On("ResetPasswordByToken", mock.Anything, &usecase.ResetPasswordInput{Token: "stale", NewPassword: "secret2"}).
		Return(errors.Wrap(domainerrors.ErrInvalidResetToken, "reset token not found or expired")).Once()

	rec := f.do(t, http.MethodPost, "/auth/password/reset", `{"token":"stale","newPassword":"secret2"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RESET_TOKEN", decode(t, rec).Error.Code)
}

func TestServer_AccountRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/v1/accounts/me", "", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	f.accountUC.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestServer_GetMe(t *testing.T) {
	f := newAPIFixture(t)
	f.accountUC.On("FindByID", mock.Anything, int64(7)).Return(sampleAccount(), nil).Once()

	rec := f.do(t, http.MethodGet, "/api/v1/accounts/me", "", f.token(t, 7, entity.AuthorityTenant))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "13800000000", env.Data["phoneNumber"])
	assert.Equal(t, true, env.Data["hasPassword"])
}

func TestServer_ChangePassword_UsesTokenCaller(t *testing.T) {
	f := newAPIFixture(t)
	f.accountUC.On("ChangePassword", mock.Anything,
		mock.MatchedBy(func(caller usecase.Caller) bool {
			return caller.AccountID == 7 && caller.HasAuthority(entity.AuthorityTenant)
		}),
		&usecase.ChangePasswordInput{OldPassword: "", NewPassword: "secret2"},
	).Return(errors.Wrap(domainerrors.ErrOriginalPasswordEmpty, "original password is blank")).Once()

	rec := f.do(t, http.MethodPut, "/api/v1/accounts/me/password", `{"newPassword":"secret2"}`,
		f.token(t, 7, entity.AuthorityTenant))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ORIGINAL_PASSWORD_EMPTY", decode(t, rec).Error.Code)
	f.accountUC.AssertExpectations(t)
}

func TestServer_UpdateProfile(t *testing.T) {
	f := newAPIFixture(t)
	updated := sampleAccount()
	updated.NickName = "quiet-renter"
	f.accountUC.On("UpdateProfile", mock.Anything, int64(7),
		&usecase.UpdateProfileInput{NickName: "quiet-renter", Avatar: "a.png", Introduction: "hi"},
	).Return(updated, nil).Once()

	rec := f.do(t, http.MethodPut, "/api/v1/accounts/me/profile",
		`{"nickName":"quiet-renter","avatar":"a.png","introduction":"hi"}`, f.token(t, 7, entity.AuthorityTenant))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "quiet-renter", decode(t, rec).Data["nickName"])
}

func TestServer_PublicLookupsHidePhone(t *testing.T) {
	f := newAPIFixture(t)
	f.accountUC.On("FindByID", mock.Anything, int64(7)).Return(sampleAccount(), nil).Once()
	f.accountUC.On("FindByNickName", mock.Anything, "zfyh13800000000").Return(sampleAccount(), nil).Once()
	token := f.token(t, 8, entity.AuthorityLandlord)

	for _, path := range []string{"/api/v1/accounts/7", "/api/v1/accounts?nickName=zfyh13800000000"} {
		rec := f.do(t, http.MethodGet, path, "", token)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotContains(t, decode(t, rec).Data, "phoneNumber", path)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/accounts/abc", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateAdmin_RequiresAdminAuthority(t *testing.T) {
	f := newAPIFixture(t)
	admin := sampleAccount()
	admin.PasswordHash = ""
	admin.Authorities = entity.Authorities{entity.AuthorityAdmin}
	f.accountUC.On("CreateAdminByPhone", mock.Anything, "13900000000").Return(admin, nil).Once()
	body := `{"phoneNumber":"13900000000"}`

	rec := f.do(t, http.MethodPost, "/api/v1/admin/accounts", body, f.token(t, 8, entity.AuthorityTenant))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/accounts", body, f.token(t, 1, entity.AuthorityAdmin))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, false, decode(t, rec).Data["hasPassword"])
	f.accountUC.AssertExpectations(t)
}

func TestServer_OversizedRequestIDIsReplaced(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(deliverycontext.HeaderXRequestID, strings.Repeat("x", 500))
	rec := httptest.NewRecorder()

	f.echo.ServeHTTP(rec, req)

	got := rec.Header().Get(deliverycontext.HeaderXRequestID)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 64)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(deliverycontext.HeaderXRequestID, "client-id-1")
	rec = httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	assert.Equal(t, "client-id-1", rec.Header().Get(deliverycontext.HeaderXRequestID))
}

func multipartAvatar(t *testing.T, size int) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(handler.AvatarUploadField, "me.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89}, size))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestServer_UploadAvatar(t *testing.T) {
	f := newAPIFixture(t)
	// Larger than http.maxRequestBodySize; the upload route has its own cap.
	body, contentType := multipartAvatar(t, 200<<10)
	f.accountUC.On("UploadAvatar", mock.Anything,
		mock.MatchedBy(func(caller usecase.Caller) bool { return caller.AccountID == 7 }),
		mock.MatchedBy(func(data []byte) bool { return len(data) == 200<<10 }),
	).Return("https://cdn.example.com/avatars/7/a.png", nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/avatar/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token(t, 7, entity.AuthorityTenant))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://cdn.example.com/avatars/7/a.png", decode(t, rec).Data["avatar"])
	f.accountUC.AssertExpectations(t)
}

func TestServer_UploadAvatar_TooLarge(t *testing.T) {
	f := newAPIFixture(t)
	body, contentType := multipartAvatar(t, (1<<20)+1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/me/avatar/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token(t, 7, entity.AuthorityTenant))
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "1.0 MB", env.Error.Details["maxSize"])
	f.accountUC.AssertNotCalled(t, "UploadAvatar", mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_UnknownRoute(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/no-such-route", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestServer_BodyLimitAppliesElsewhere(t *testing.T) {
	f := newAPIFixture(t)
	oversized := `{"phoneNumber":"13800000000","password":"` + strings.Repeat("p", 200<<10) + `"}`

	rec := f.do(t, http.MethodPost, "/auth/register", oversized, "")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
