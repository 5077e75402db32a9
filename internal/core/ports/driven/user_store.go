package driven

import (
	"context"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
)

// UserStore is the user directory (PostgreSQL)
type UserStore interface {
	// Create stores a new identity. Returns domain.ErrAlreadyExists when
	// the email or alias is taken.
	Create(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email, case-insensitively
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByAlias retrieves a user by alias, case-sensitively
	GetByAlias(ctx context.Context, alias string) (*domain.User, error)

	// UpdateFields applies a partial update and returns the stored result
	UpdateFields(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
}
