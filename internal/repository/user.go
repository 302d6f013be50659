package repository

import (
	"context"

	"docvault/internal/model"
)

// UserRepository persists accounts. Username and email are unique.
type UserRepository interface {
	// Create inserts u and returns the stored row. Unique violations yield *DuplicateError.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
