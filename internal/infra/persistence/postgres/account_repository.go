// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"renthouse/internal/domain/entity"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/repository"
	"renthouse/internal/errors"
	"renthouse/internal/infra/persistence/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// accountRepository implements the domain AccountRepository interface using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
// It returns the repository as a domain interface, adhering to dependency inversion.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// FindByID retrieves a single account by its identifier.
func (repo *accountRepository) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	return repo.findOne(repo.db.WithContext(ctx), "id = ?", id)
}

// FindByPhoneNumber reads from the primary since it guards registration.
func (repo *accountRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.Account, error) {
	return repo.findOne(repo.db.WithContext(ctx).Clauses(dbresolver.Write), "phone_number = ?", phoneNumber)
}

// FindByNickName reads from the primary since it guards profile updates.
func (repo *accountRepository) FindByNickName(ctx context.Context, nickName string) (*entity.Account, error) {
	return repo.findOne(repo.db.WithContext(ctx).Clauses(dbresolver.Write), "nick_name = ?", nickName)
}

func (repo *accountRepository) findOne(db *gorm.DB, query string, args ...any) (*entity.Account, error) {
	var accountM model.AccountModel
	if err := db.Where(query, args...).First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find account")
	}

	return toAccountDomain(&accountM), nil
}

// Create persists a new account and copies the generated ID and timestamps back.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(accountM).Error; err != nil {
		return translateAccountWriteError(err, domainerrors.ErrDuplicatePhone, domainerrors.ErrAccountCreationFailed, "failed to create account")
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// Update saves the profile columns of an existing account. The password
// column is only written by UpdatePasswordHash.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	result := repo.db.WithContext(ctx).
		Model(accountM).
		Select("NickName", "Avatar", "Introduction").
		Updates(accountM)
	if result.Error != nil {
		return translateAccountWriteError(result.Error, domainerrors.ErrDuplicateNickName, domainerrors.ErrAccountUpdateFailed, "failed to update account")
	}
	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// UpdatePasswordHash overwrites only the password column.
func (repo *accountRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return repo.updateColumn(ctx, id, "password", passwordHash)
}

// UpdateAvatar overwrites only the avatar column.
func (repo *accountRepository) UpdateAvatar(ctx context.Context, id int64, avatar string) error {
	return repo.updateColumn(ctx, id, "avatar", avatar)
}

func (repo *accountRepository) updateColumn(ctx context.Context, id int64, column string, value any) error {
	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update account "+column)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

// translateAccountWriteError maps constraint violations onto domain errors.
// fallbackDuplicate is used when the driver does not report which unique
// constraint was hit.
func translateAccountWriteError(err error, fallbackDuplicate, failed *domainerrors.BaseError, details string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case model.ConstraintAccountPhoneNumber, model.ConstraintAccountName:
			return domainerrors.ErrDuplicatePhone.WrapMessage("phone number already registered")
		case model.ConstraintAccountNickName:
			return domainerrors.ErrDuplicateNickName.WrapMessage("nickname already taken")
		default:
			return fallbackDuplicate.WrapMessage(details)
		}
	}
	if isNotNullConstraintViolation(err) {
		return failed.WrapMessage("missing required account information")
	}

	return domainerrors.NewDatabaseExecuteError(err, details)
}

// --- Mapper Functions ---

// toAccountDomain converts a GORM AccountModel to a domain Account entity.
func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	account := &entity.Account{
		ID:           data.ID,
		PhoneNumber:  data.PhoneNumber,
		Name:         data.Name,
		NickName:     data.NickName,
		Avatar:       data.Avatar,
		Introduction: data.Introduction,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
	if data.Password != nil {
		account.PasswordHash = *data.Password
	}
	if len(data.Roles) > 0 {
		roles := make([]*entity.Role, 0, len(data.Roles))
		for i := range data.Roles {
			roles = append(roles, toRoleDomain(&data.Roles[i]))
		}
		account.Authorities = entity.AuthoritiesOf(roles)
	}

	return account
}

// fromAccountDomain converts a domain Account entity to a GORM AccountModel.
// An empty password hash is stored as NULL.
func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	accountM := &model.AccountModel{
		ID:           data.ID,
		PhoneNumber:  data.PhoneNumber,
		Name:         data.Name,
		NickName:     data.NickName,
		Avatar:       data.Avatar,
		Introduction: data.Introduction,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
	if data.HasPassword() {
		hash := data.PasswordHash
		accountM.Password = &hash
	}

	return accountM
}
