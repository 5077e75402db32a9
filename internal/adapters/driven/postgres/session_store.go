package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const sessionColumns = `id, user_id, session_token_hash, created_at, expires_at, user_agent, host(ip_address)`

// SessionStore implements driven.SessionStore using PostgreSQL
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a session. Rows are never updated afterwards.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, session_token_hash, created_at, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7::inet)
	`

	var userAgent sql.NullString
	if session.UserAgent != "" {
		userAgent = sql.NullString{String: session.UserAgent, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshHash,
		session.CreatedAt,
		session.ExpiresAt,
		userAgent,
		NullIP(session.IPAddress),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}
	return scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

// GetByFingerprint retrieves a session by refresh token fingerprint
func (s *SessionStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Session, error) {
	return scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_token_hash = $1`, fingerprint))
}

// Delete deletes a session
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteByFingerprint deletes the session of a refresh token
func (s *SessionStore) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_token_hash = $1`, fingerprint)
	return err
}

// DeleteByUser deletes all sessions for a user
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	if !validUUID(userID) {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpired removes sessions with expires_at <= now in one statement,
// so it is safe to run concurrently with lookups and other sweeps.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByUser lists all sessions for a user, oldest first
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if !validUUID(userID) {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	session, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return session, err
}

func scanSessionRow(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var userAgent, ip sql.NullString

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshHash,
		&session.CreatedAt,
		&session.ExpiresAt,
		&userAgent,
		&ip,
	)
	if err != nil {
		return nil, err
	}

	session.UserAgent = userAgent.String
	session.IPAddress = ip.String
	return &session, nil
}
