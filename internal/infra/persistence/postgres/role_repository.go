package postgres

import (
	"context"

	"renthouse/internal/domain/entity"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/repository"
	"renthouse/internal/infra/persistence/model"

	"gorm.io/gorm"
)

// roleRepository implements the domain RoleRepository interface using GORM.
type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository is the constructor for roleRepository.
func NewRoleRepository(db *gorm.DB) repository.RoleRepository {
	return &roleRepository{db: db}
}

// SaveAll inserts all roles in a single batch.
func (repo *roleRepository) SaveAll(ctx context.Context, roles []*entity.Role) error {
	if len(roles) == 0 {
		return nil
	}

	roleMs := make([]*model.RoleModel, 0, len(roles))
	for _, role := range roles {
		roleMs = append(roleMs, fromRoleDomain(role))
	}

	if err := repo.db.WithContext(ctx).Create(&roleMs).Error; err != nil {
		return translateRoleWriteError(err)
	}

	for i, roleM := range roleMs {
		roles[i].ID = roleM.ID
	}

	return nil
}

// Save inserts a single role.
func (repo *roleRepository) Save(ctx context.Context, role *entity.Role) error {
	roleM := fromRoleDomain(role)

	if err := repo.db.WithContext(ctx).Create(roleM).Error; err != nil {
		return translateRoleWriteError(err)
	}

	role.ID = roleM.ID

	return nil
}

// FindByAccountID lists an account's roles in insertion order.
func (repo *roleRepository) FindByAccountID(ctx context.Context, accountID int64) ([]*entity.Role, error) {
	var roleMs []model.RoleModel
	if err := repo.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&roleMs).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list roles")
	}

	roles := make([]*entity.Role, 0, len(roleMs))
	for i := range roleMs {
		roles = append(roles, toRoleDomain(&roleMs[i]))
	}

	return roles, nil
}

func translateRoleWriteError(err error) error {
	if isForeignKeyConstraintViolation(err) {
		return domainerrors.ErrAccountNotFound.WrapMessage("role owner does not exist")
	}

	return domainerrors.NewDatabaseExecuteError(err, "failed to save roles")
}

func toRoleDomain(data *model.RoleModel) *entity.Role {
	return &entity.Role{
		ID:        data.ID,
		AccountID: data.AccountID,
		Name:      entity.RoleName(data.Name),
	}
}

func fromRoleDomain(data *entity.Role) *model.RoleModel {
	return &model.RoleModel{
		ID:        data.ID,
		AccountID: data.AccountID,
		Name:      data.Name.String(),
	}
}
