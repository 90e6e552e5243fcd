package impl

import (
	"context"
	"log/slog"

	deliverycontext "renthouse/internal/delivery/context"
	"renthouse/internal/domain/entity"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/repository"
	"renthouse/internal/domain/service"
	"renthouse/internal/errors"
	"renthouse/internal/usecase"

	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	accountRepo  repository.AccountRepository
	roleRepo     repository.RoleRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	AccountRepo  repository.AccountRepository
	RoleRepo     repository.RoleRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		accountRepo:  params.AccountRepo,
		roleRepo:     params.RoleRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login verifies phone number and password and issues an access token.
// Accounts without a password cannot log in.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	if input == nil {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "login input is required")
	}

	account, err := srv.accountRepo.FindByPhoneNumber(ctx, input.PhoneNumber)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load account")
	}
	if account == nil || !account.HasPassword() || !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Login rejected", slog.String("phoneNumber", input.PhoneNumber))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "phone number or password mismatch")
	}

	roles, err := srv.roleRepo.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load roles")
	}
	account.Authorities = entity.AuthoritiesOf(roles)

	accessToken, err := srv.tokenService.GenerateAccessToken(account.ID, account.Authorities.ToStrings())
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	srv.log(ctx).Info("Login succeeded", slog.Int64("accountID", account.ID))

	return &usecase.LoginOutput{
		AccessToken: accessToken,
		ExpiresIn:   srv.tokenService.AccessTokenDuration(),
		Account:     account,
	}, nil
}
