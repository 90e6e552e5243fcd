// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	deliverycontext "renthouse/internal/delivery/context"
	"renthouse/internal/domain/entity"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/repository"
	"renthouse/internal/domain/service"
	"renthouse/internal/errors"
	"renthouse/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	roleRepo    repository.RoleRepository
	resetTokens repository.ResetTokenStore
	avatars     service.AvatarStorage
	hasher      service.PasswordHasher
	publisher   service.EventPublisher
	newToken    func() string
	now         func() time.Time
	logger      *slog.Logger
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	RoleRepo    repository.RoleRepository
	ResetTokens repository.ResetTokenStore
	Avatars     service.AvatarStorage
	Hasher      service.PasswordHasher
	Publisher   service.EventPublisher
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		roleRepo:    params.RoleRepo,
		resetTokens: params.ResetTokens,
		avatars:     params.Avatars,
		hasher:      params.Hasher,
		publisher:   params.Publisher,
		newToken:    uuid.NewString,
		now:         time.Now,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

type persistRolesFunc func(ctx context.Context, roleRepo repository.RoleRepository, roles []*entity.Role) error

// RegisterByPhone creates an account and its roles in one transaction.
func (srv *accountService) RegisterByPhone(ctx context.Context, input *usecase.RegisterByPhoneInput) (*entity.Account, error) {
	if input == nil || strings.TrimSpace(input.PhoneNumber) == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "phone number is required")
	}
	roleNames, err := normalizeRoles(input.Roles)
	if err != nil {
		return nil, err
	}
	if err := checkPasswordLength(input.Password); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Starting registration",
		slog.String("phoneNumber", input.PhoneNumber),
		slog.Any("roles", roleNames),
	)

	// bcrypt is CPU-bound; keep it outside the transaction.
	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	account := entity.NewPhoneAccount(input.PhoneNumber)
	account.PasswordHash = passwordHash

	saveAll := func(ctx context.Context, roleRepo repository.RoleRepository, roles []*entity.Role) error {
		return roleRepo.SaveAll(ctx, roles)
	}
	if err := srv.createAccount(ctx, account, roleNames, saveAll); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Registration completed", slog.Int64("accountID", account.ID))
	srv.publish(ctx, service.AccountEventRegistered, account, "")

	return account, nil
}

// CreateAdminByPhone creates a password-less account holding only ADMIN.
func (srv *accountService) CreateAdminByPhone(ctx context.Context, phoneNumber string) (*entity.Account, error) {
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "phone number is required")
	}

	srv.log(ctx).Info("Creating admin account", slog.String("phoneNumber", phoneNumber))

	account := entity.NewPhoneAccount(phoneNumber)
	saveOne := func(ctx context.Context, roleRepo repository.RoleRepository, roles []*entity.Role) error {
		return roleRepo.Save(ctx, roles[0])
	}
	if err := srv.createAccount(ctx, account, []entity.RoleName{entity.RoleAdmin}, saveOne); err != nil {
		return nil, err
	}

	srv.publish(ctx, service.AccountEventAdminCreated, account, "")

	return account, nil
}

// createAccount inserts the account and its roles atomically. A phone number
// that is already taken, whether seen by the lookup or by the store's unique
// constraint, yields ErrDuplicatePhone.
func (srv *accountService) createAccount(
	ctx context.Context,
	account *entity.Account,
	roleNames []entity.RoleName,
	persistRoles persistRolesFunc,
) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.AccountRepo()

		existing, err := accountRepo.FindByPhoneNumber(ctx, account.PhoneNumber)
		if err != nil {
			return errors.Wrap(err, "failed to check phone number")
		}
		if existing != nil {
			return errors.Wrap(domainerrors.ErrDuplicatePhone, "phone number already registered")
		}

		if err := accountRepo.Create(ctx, account); err != nil {
			return errors.Wrap(err, "failed to create account")
		}

		roles := entity.NewRoles(account.ID, roleNames)
		if len(roles) > 0 {
			if err := persistRoles(ctx, repoFactory.RoleRepo(), roles); err != nil {
				return errors.Wrap(err, "failed to save roles")
			}
		}
		account.Authorities = entity.AuthoritiesOf(roles)

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to execute account creation transaction",
			slog.String("phoneNumber", account.PhoneNumber),
			slog.Any("error", err),
		)

		return errors.Wrap(err, "failed to execute account creation transaction")
	}

	return nil
}

// UpdateProfile overwrites nickname, avatar and introduction in one transaction.
func (srv *accountService) UpdateProfile(ctx context.Context, accountID int64, input *usecase.UpdateProfileInput) (*entity.Account, error) {
	if input == nil || strings.TrimSpace(input.NickName) == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "nickname is required")
	}

	var updated *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.AccountRepo()

		account, err := accountRepo.FindByID(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "failed to load account")
		}
		if account == nil {
			return errors.Wrapf(domainerrors.ErrAccountNotFound, "account %d", accountID)
		}

		if input.NickName != account.NickName {
			holder, err := accountRepo.FindByNickName(ctx, input.NickName)
			if err != nil {
				return errors.Wrap(err, "failed to check nickname")
			}
			if holder != nil && holder.ID != account.ID {
				return errors.Wrap(domainerrors.ErrDuplicateNickName, "nickname already taken")
			}
		}

		account.NickName = input.NickName
		account.Avatar = input.Avatar
		account.Introduction = input.Introduction

		if err := accountRepo.Update(ctx, account); err != nil {
			return mapAccountWriteError(err, accountID, "failed to update profile")
		}

		roles, err := repoFactory.RoleRepo().FindByAccountID(ctx, account.ID)
		if err != nil {
			return errors.Wrap(err, "failed to load roles")
		}
		account.Authorities = entity.AuthoritiesOf(roles)
		updated = account

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to update profile", slog.Int64("accountID", accountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute profile update transaction")
	}

	return updated, nil
}

// UpdateAvatar sets the caller's avatar.
func (srv *accountService) UpdateAvatar(ctx context.Context, caller usecase.Caller, avatar string) error {
	if !caller.IsAuthenticated() {
		return errors.Wrap(domainerrors.ErrUnauthenticated, "avatar update requires a caller")
	}

	// Single operation - use direct repository instance
	if err := srv.accountRepo.UpdateAvatar(ctx, caller.AccountID, avatar); err != nil {
		return mapAccountWriteError(err, caller.AccountID, "failed to update avatar")
	}

	srv.log(ctx).Debug("Avatar updated", slog.Int64("accountID", caller.AccountID))

	return nil
}

// UploadAvatar stores the image first; a failed write leaves the current avatar untouched.
func (srv *accountService) UploadAvatar(ctx context.Context, caller usecase.Caller, data []byte) (string, error) {
	if !caller.IsAuthenticated() {
		return "", errors.Wrap(domainerrors.ErrUnauthenticated, "avatar upload requires a caller")
	}
	if len(data) == 0 {
		return "", errors.Wrap(domainerrors.ErrValidationFailed, "avatar image is empty")
	}

	avatarURL, err := srv.avatars.Put(ctx, caller.AccountID, data)
	if err != nil {
		srv.log(ctx).Warn("Failed to store avatar", slog.Int64("accountID", caller.AccountID), slog.Any("error", err))

		return "", errors.Wrap(err, "failed to store avatar")
	}

	if err := srv.UpdateAvatar(ctx, caller, avatarURL); err != nil {
		return "", err
	}

	return avatarURL, nil
}

// ChangePassword verifies the current password when one is set, then stores
// a digest of the new one.
func (srv *accountService) ChangePassword(ctx context.Context, caller usecase.Caller, input *usecase.ChangePasswordInput) error {
	if !caller.IsAuthenticated() {
		return errors.Wrap(domainerrors.ErrUnauthenticated, "password change requires a caller")
	}
	if input == nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "password change input is required")
	}
	if err := checkPasswordLength(input.NewPassword); err != nil {
		return err
	}

	account, err := srv.accountRepo.FindByID(ctx, caller.AccountID)
	if err != nil {
		return errors.Wrap(err, "failed to load account")
	}
	if account == nil {
		return errors.Wrapf(domainerrors.ErrAccountNotFound, "account %d", caller.AccountID)
	}

	if account.HasPassword() {
		if strings.TrimSpace(input.OldPassword) == "" {
			return errors.Wrap(domainerrors.ErrOriginalPasswordEmpty, "original password is blank")
		}
		if !srv.hasher.Check(input.OldPassword, account.PasswordHash) {
			srv.log(ctx).Warn("Original password mismatch", slog.Int64("accountID", account.ID))

			return errors.Wrap(domainerrors.ErrOriginalPasswordIncorrect, "original password mismatch")
		}
	}

	if err := srv.storePassword(ctx, account.ID, input.NewPassword); err != nil {
		return err
	}

	srv.log(ctx).Info("Password changed", slog.Int64("accountID", account.ID))
	srv.publish(ctx, service.AccountEventPasswordChanged, account, "")

	return nil
}

// GenerateResetToken issues a token bound to the phone number. Tokens issued
// earlier for the same phone number stay valid until they expire.
func (srv *accountService) GenerateResetToken(ctx context.Context, phoneNumber string) (string, error) {
	account, err := srv.accountRepo.FindByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return "", errors.Wrap(err, "failed to load account")
	}
	if account == nil {
		return "", errors.Wrap(domainerrors.ErrAccountNotFound, "no account for phone number")
	}

	token := srv.newToken()
	if err := srv.resetTokens.Set(ctx, token, phoneNumber, entity.ResetTokenTTL); err != nil {
		srv.log(ctx).Error("Failed to store reset token", slog.Int64("accountID", account.ID), slog.Any("error", err))

		return "", errors.Wrap(errors.Join(domainerrors.ErrResetTokenStoreFailed, err), "failed to store reset token")
	}

	srv.log(ctx).Info("Reset token issued", slog.Int64("accountID", account.ID))
	srv.publish(ctx, service.AccountEventPasswordResetRequested, account, token)

	return token, nil
}

// ResetPasswordByToken deletes the token before anything else so it can be
// redeemed at most once, then sets the new password.
func (srv *accountService) ResetPasswordByToken(ctx context.Context, input *usecase.ResetPasswordInput) error {
	if input == nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "reset input is required")
	}
	// Rejected before the token is burned so the holder can retry.
	if err := checkPasswordLength(input.NewPassword); err != nil {
		return err
	}

	phoneNumber, found, getErr := srv.resetTokens.Get(ctx, input.Token)

	if err := srv.resetTokens.Delete(ctx, input.Token); err != nil {
		srv.log(ctx).Warn("Failed to delete reset token", slog.Any("error", err))
		if getErr == nil && found {
			return errors.Wrap(errors.Join(domainerrors.ErrResetTokenStoreFailed, err), "failed to burn reset token")
		}
	}

	if getErr != nil {
		return errors.Wrap(errors.Join(domainerrors.ErrResetTokenStoreFailed, getErr), "failed to read reset token")
	}
	if !found {
		return errors.Wrap(domainerrors.ErrInvalidResetToken, "reset token not found or expired")
	}

	account, err := srv.accountRepo.FindByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return errors.Wrap(err, "failed to load account")
	}
	if account == nil {
		return errors.Wrap(domainerrors.ErrAccountNotFound, "reset token refers to a missing account")
	}

	if err := srv.storePassword(ctx, account.ID, input.NewPassword); err != nil {
		return err
	}

	srv.log(ctx).Info("Password reset by token", slog.Int64("accountID", account.ID))
	srv.publish(ctx, service.AccountEventPasswordReset, account, "")

	return nil
}

// FindByID returns the account with its authorities.
func (srv *accountService) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, id)

	return srv.withAuthorities(ctx, account, err)
}

// FindByPhoneNumber returns the account with its authorities.
func (srv *accountService) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByPhoneNumber(ctx, phoneNumber)

	return srv.withAuthorities(ctx, account, err)
}

// FindByNickName returns the account with its authorities.
func (srv *accountService) FindByNickName(ctx context.Context, nickName string) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByNickName(ctx, nickName)

	return srv.withAuthorities(ctx, account, err)
}

func (srv *accountService) withAuthorities(ctx context.Context, account *entity.Account, err error) (*entity.Account, error) {
	if err != nil {
		return nil, errors.Wrap(err, "failed to load account")
	}
	if account == nil {
		return nil, errors.WithStack(domainerrors.ErrAccountNotFound)
	}

	roles, err := srv.roleRepo.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load roles")
	}
	account.Authorities = entity.AuthoritiesOf(roles)

	return account, nil
}

func (srv *accountService) storePassword(ctx context.Context, accountID int64, password string) error {
	passwordHash, err := srv.hasher.Hash(password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password", slog.Int64("accountID", accountID), slog.Any("error", err))

		return errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	if err := srv.accountRepo.UpdatePasswordHash(ctx, accountID, passwordHash); err != nil {
		return mapAccountWriteError(err, accountID, "failed to store password")
	}

	return nil
}

// publish is best-effort: the change is already committed.
func (srv *accountService) publish(ctx context.Context, eventType service.AccountEventType, account *entity.Account, resetToken string) {
	if srv.publisher == nil {
		return
	}

	event := &service.AccountEvent{
		RequestID:   deliverycontext.GetRequestIDFromContext(ctx),
		Type:        eventType,
		AccountID:   account.ID,
		PhoneNumber: account.PhoneNumber,
		Authorities: account.Authorities.ToStrings(),
		ResetToken:  resetToken,
		OccurredAt:  srv.now().UTC(),
	}
	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish account event",
			slog.String("eventType", string(eventType)),
			slog.Int64("accountID", account.ID),
			slog.Any("error", err),
		)
	}
}

// checkPasswordLength rejects passwords bcrypt cannot hash. The limit is in
// bytes, so multi-byte characters count more than once.
func checkPasswordLength(password string) error {
	if len(password) > entity.MaxPasswordBytes {
		return errors.Wrapf(domainerrors.ErrValidationFailed, "password exceeds %d bytes", entity.MaxPasswordBytes)
	}

	return nil
}

// normalizeRoles rejects names outside the enumeration and drops repeats.
func normalizeRoles(names []entity.RoleName) ([]entity.RoleName, error) {
	result := make([]entity.RoleName, 0, len(names))
	for _, name := range names {
		if !name.IsValid() {
			return nil, errors.Wrapf(domainerrors.ErrValidationFailed, "unknown role %q", name)
		}
		if !slices.Contains(result, name) {
			result = append(result, name)
		}
	}

	return result, nil
}

func mapAccountWriteError(err error, accountID int64, message string) error {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return errors.Wrapf(domainerrors.ErrAccountNotFound, "account %d", accountID)
	}

	return errors.Wrap(err, message)
}
