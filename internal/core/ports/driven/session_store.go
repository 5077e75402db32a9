package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
)

// SessionStore handles session persistence (PostgreSQL or Redis).
// Deletes are idempotent: removing a missing session is not an error.
type SessionStore interface {
	// Create stores a new session
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*domain.Session, error)

	// GetByFingerprint retrieves a session by refresh token fingerprint
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Session, error)

	// Delete deletes a session
	Delete(ctx context.Context, id string) error

	// DeleteByFingerprint deletes the session of a refresh token
	DeleteByFingerprint(ctx context.Context, fingerprint string) error

	// DeleteByUser deletes all sessions for a user (logout everywhere)
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired removes every session with expires_at <= now and
	// returns how many were removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// ListByUser lists the sessions of a user, including expired ones
	// not yet swept
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}
