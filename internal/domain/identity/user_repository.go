package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByResetTokenHash finds the user holding a reset token
	FindByResetTokenHash(ctx context.Context, hash string) (*User, error)

	// FindAll lists users; filter key "role" is supported
	FindAll(ctx context.Context, filter shared.Filter) ([]User, error)

	// Count counts users matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Create inserts a new user
	Create(ctx context.Context, user *User) error

	// Update saves changes to an existing user
	Update(ctx context.Context, user *User) error

	// ExistsByUsernameOrEmail checks whether either identifier is taken
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// CountByRole counts users with a role
	CountByRole(ctx context.Context, role Role) (int64, error)
}
