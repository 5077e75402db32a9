package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// SessionManager owns the session lifecycle: create on login, look up on
// refresh, delete on logout or sweep. Sessions are never updated in place.
type SessionManager struct {
	store driven.SessionStore
	now   func() time.Time
}

// NewSessionManager creates a session manager. A nil clock uses time.Now.
func NewSessionManager(store driven.SessionStore, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{store: store, now: now}
}

// Now returns the manager's clock reading
func (m *SessionManager) Now() time.Time {
	return m.now()
}

// Create records a session for a freshly issued refresh token
func (m *SessionManager) Create(ctx context.Context, userID, fingerprint string, expiresAt time.Time, meta domain.SessionMetadata) (*domain.Session, error) {
	if userID == "" || fingerprint == "" {
		return nil, domain.ErrInvalidInput
	}

	now := m.now()
	if !expiresAt.After(now) {
		return nil, domain.ErrInvalidInput
	}

	session := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		RefreshHash: fingerprint,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		UserAgent:   meta.UserAgent,
		IPAddress:   meta.IPAddress,
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, domain.Unavailable("create session", err)
	}
	return session, nil
}

// Lookup finds the session of a refresh token fingerprint.
// A missing session returns domain.ErrNotFound.
func (m *SessionManager) Lookup(ctx context.Context, fingerprint string) (*domain.Session, error) {
	session, err := m.store.GetByFingerprint(ctx, fingerprint)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.Unavailable("lookup session", err)
	}
	return session, nil
}

// Get finds a session by ID
func (m *SessionManager) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := m.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.Unavailable("get session", err)
	}
	return session, nil
}

// IsUsable reports whether a session exists and has not expired
func (m *SessionManager) IsUsable(session *domain.Session) bool {
	return session != nil && !session.IsExpired(m.now())
}

// Revoke deletes a session by ID. Missing sessions are not an error.
func (m *SessionManager) Revoke(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return domain.Unavailable("revoke session", err)
	}
	return nil
}

// RevokeByFingerprint deletes the session of a refresh token
func (m *SessionManager) RevokeByFingerprint(ctx context.Context, fingerprint string) error {
	if err := m.store.DeleteByFingerprint(ctx, fingerprint); err != nil {
		return domain.Unavailable("revoke session", err)
	}
	return nil
}

// RevokeAll deletes every session of a user
func (m *SessionManager) RevokeAll(ctx context.Context, userID string) error {
	if err := m.store.DeleteByUser(ctx, userID); err != nil {
		return domain.Unavailable("revoke user sessions", err)
	}
	return nil
}

// SweepExpired deletes every session expired at the current clock reading
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, domain.Unavailable("sweep sessions", err)
	}
	return n, nil
}

// List returns the usable sessions of a user, oldest first
func (m *SessionManager) List(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Unavailable("list sessions", err)
	}

	usable := make([]*domain.Session, 0, len(sessions))
	for _, s := range sessions {
		if m.IsUsable(s) {
			usable = append(usable, s)
		}
	}
	return usable, nil
}
