package postgres

import (
	"renthouse/internal/errors"
	"renthouse/internal/infra/persistence/model"

	"gorm.io/gorm"
)

// Migrate creates or updates the account tables and their unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.AccountModel{}, &model.RoleModel{}); err != nil {
		return errors.Wrap(err, "failed to migrate account schema")
	}

	return nil
}
