package repository

import (
	"context"

	"renthouse/internal/domain/entity"
)

// RoleRepository defines the persistence operations for role assignments.
type RoleRepository interface {
	// SaveAll persists every role in one statement and assigns their IDs.
	SaveAll(ctx context.Context, roles []*entity.Role) error

	// Save persists a single role and assigns its ID.
	Save(ctx context.Context, role *entity.Role) error

	// FindByAccountID lists the roles held by an account.
	FindByAccountID(ctx context.Context, accountID int64) ([]*entity.Role, error)
}
