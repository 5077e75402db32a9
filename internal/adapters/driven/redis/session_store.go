package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const (
	sessionPrefix            = "session:"
	sessionFingerprintPrefix = "session:fp:"
	sessionUserPrefix        = "session:user:"
	sessionExpiryKey         = "session:expiry"

	// sessionRetention keeps records around past their expiry so the
	// sweeper, not Redis, decides when they go. Records the sweeper misses
	// still disappear after this.
	sessionRetention = 24 * time.Hour
)

// SessionStore implements driven.SessionStore using Redis.
//
// Layout:
//
//	session:<id>           JSON record
//	session:fp:<hash>      session ID for a refresh token fingerprint
//	session:user:<userID>  set of session IDs
//	session:expiry         sorted set of session IDs scored by expiry (unix ms)
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a new Redis-backed SessionStore
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// sessionRecord is the stored form. Unlike domain.Session it keeps the
// fingerprint, which is never exposed over the API.
type sessionRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserAgent   string    `json:"user_agent,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
}

func toRecord(s *domain.Session) sessionRecord {
	return sessionRecord{
		ID:          s.ID,
		UserID:      s.UserID,
		Fingerprint: s.RefreshHash,
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
		UserAgent:   s.UserAgent,
		IPAddress:   s.IPAddress,
	}
}

func (r sessionRecord) session() *domain.Session {
	return &domain.Session{
		ID:          r.ID,
		UserID:      r.UserID,
		RefreshHash: r.Fingerprint,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		UserAgent:   r.UserAgent,
		IPAddress:   r.IPAddress,
	}
}

func expiryScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// createScript writes the record and its indexes only when neither the ID
// nor the fingerprint is taken.
//
// KEYS: session, fingerprint, user set, expiry zset
// ARGV: record, id, ttl (ms), expiry score
var createScript = redis.NewScript(`
	if redis.call("exists", KEYS[1]) == 1 or redis.call("exists", KEYS[2]) == 1 then
		return 0
	end
	redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[3])
	redis.call("set", KEYS[2], ARGV[2], "PX", ARGV[3])
	redis.call("sadd", KEYS[3], ARGV[2])
	redis.call("zadd", KEYS[4], ARGV[4], ARGV[2])
	return 1
`)

// Create stores a session. A duplicate ID or fingerprint is ErrAlreadyExists.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(toRecord(session))
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + sessionRetention
	if ttl <= 0 {
		ttl = time.Minute
	}

	keys := []string{
		sessionPrefix + session.ID,
		sessionFingerprintPrefix + session.RefreshHash,
		sessionUserPrefix + session.UserID,
		sessionExpiryKey,
	}
	created, err := createScript.Run(ctx, s.client, keys,
		data, session.ID, ttl.Milliseconds(), expiryScore(session.ExpiresAt)).Int()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if created == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *SessionStore) getRecord(ctx context.Context, id string) (*sessionRecord, error) {
	data, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &rec, nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.session(), nil
}

func (s *SessionStore) idForFingerprint(ctx context.Context, fingerprint string) (string, error) {
	id, err := s.client.Get(ctx, sessionFingerprintPrefix+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session by fingerprint: %w", err)
	}
	return id, nil
}

// GetByFingerprint retrieves a session by refresh token fingerprint
func (s *SessionStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Session, error) {
	id, err := s.idForFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete deletes a session and its indexes
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	rec, err := s.getRecord(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// Record gone already; drop any index entry left behind
		return s.client.ZRem(ctx, sessionExpiryKey, id).Err()
	}
	if err != nil {
		return err
	}
	_, err = s.deleteRecord(ctx, rec)
	return err
}

// DeleteByFingerprint deletes the session of a refresh token
func (s *SessionStore) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	id, err := s.idForFingerprint(ctx, fingerprint)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// DeleteByUser deletes all sessions for a user (logout everywhere).
// Only the IDs read here leave the user set, so a session created
// concurrently stays indexed and a later call still reaches it.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, sessionUserPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("failed to get user sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	members := make([]any, 0, len(ids))
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		members = append(members, id)
	}

	if err := s.client.SRem(ctx, sessionUserPrefix+userID, members...).Err(); err != nil {
		return fmt.Errorf("failed to clean user session set: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
// Candidates come from the expiry index and are rechecked against the
// stored record, since scores only have millisecond precision.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, sessionExpiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan session expiry index: %w", err)
	}

	var removed int64
	for _, id := range ids {
		rec, err := s.getRecord(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			if err := s.client.ZRem(ctx, sessionExpiryKey, id).Err(); err != nil {
				return removed, fmt.Errorf("failed to clean expiry index: %w", err)
			}
			continue
		}
		if err != nil {
			return removed, err
		}
		if !rec.session().IsExpired(now) {
			continue
		}
		deleted, err := s.deleteRecord(ctx, rec)
		if err != nil {
			return removed, err
		}
		// Another sweeper may have deleted it between the read and here
		if deleted {
			removed++
		}
	}
	return removed, nil
}

// ListByUser lists the sessions of a user, oldest first. IDs whose
// records have vanished are pruned from the user's set.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := s.client.SMembers(ctx, sessionUserPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user sessions: %w", err)
	}

	var sessions []*domain.Session
	var stale []any

	for _, id := range ids {
		rec, err := s.getRecord(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, rec.session())
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, sessionUserPrefix+userID, stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune user session set: %w", err)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// deleteRecord removes a session and all its indexes. It reports whether
// the record itself was still there to delete.
func (s *SessionStore) deleteRecord(ctx context.Context, rec *sessionRecord) (bool, error) {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, sessionPrefix+rec.ID)
	pipe.Del(ctx, sessionFingerprintPrefix+rec.Fingerprint)
	pipe.SRem(ctx, sessionUserPrefix+rec.UserID, rec.ID)
	pipe.ZRem(ctx, sessionExpiryKey, rec.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return del.Val() > 0, nil
}
