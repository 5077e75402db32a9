package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
)

func seedSessionUser(t *testing.T, db *DB) *domain.User {
	t.Helper()
	user := newTestUser(uuid.NewString()[:8] + "@example.com")
	require.NoError(t, NewUserStore(db).Create(context.Background(), user))
	return user
}

func newTestSession(userID, fingerprint string, expiresAt time.Time) *domain.Session {
	return &domain.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		RefreshHash: fingerprint,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		ExpiresAt:   expiresAt.UTC().Truncate(time.Microsecond),
		UserAgent:   "go-test",
		IPAddress:   "192.0.2.10",
	}
}

func TestSessionStore_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	store := NewSessionStore(db)
	user := seedSessionUser(t, db)
	ctx := context.Background()

	session := newTestSession(user.ID, "fp-1", time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, session))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, "fp-1", got.RefreshHash)
	assert.Equal(t, "192.0.2.10", got.IPAddress)
	assert.Equal(t, "go-test", got.UserAgent)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	byFP, err := store.GetByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, byFP.ID)

	_, err = store.GetByFingerprint(ctx, "fp-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_DuplicateFingerprint(t *testing.T) {
	db := setupTestDB(t)
	store := NewSessionStore(db)
	user := seedSessionUser(t, db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(user.ID, "fp-dup", time.Now().Add(time.Hour))))
	err := store.Create(ctx, newTestSession(user.ID, "fp-dup", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSessionStore_EmptyMetadata(t *testing.T) {
	db := setupTestDB(t)
	store := NewSessionStore(db)
	user := seedSessionUser(t, db)
	ctx := context.Background()

	session := newTestSession(user.ID, "fp-bare", time.Now().Add(time.Hour))
	session.UserAgent = ""
	session.IPAddress = "not-an-ip"
	require.NoError(t, store.Create(ctx, session))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, got.UserAgent)
	assert.Empty(t, got.IPAddress)
}

func TestSessionStore_Deletes(t *testing.T) {
	db := setupTestDB(t)
	store := NewSessionStore(db)
	alice := seedSessionUser(t, db)
	bob := seedSessionUser(t, db)
	ctx := context.Background()

	s1 := newTestSession(alice.ID, "fp-1", time.Now().Add(time.Hour))
	s2 := newTestSession(alice.ID, "fp-2", time.Now().Add(time.Hour))
	s3 := newTestSession(bob.ID, "fp-3", time.Now().Add(time.Hour))
	for _, s := range []*domain.Session{s1, s2, s3} {
		require.NoError(t, store.Create(ctx, s))
	}

	require.NoError(t, store.Delete(ctx, s1.ID))
	require.NoError(t, store.Delete(ctx, s1.ID), "delete is idempotent")
	require.NoError(t, store.Delete(ctx, "not-a-uuid"))
	require.NoError(t, store.DeleteByFingerprint(ctx, "fp-missing"))

	list, err := store.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s2.ID, list[0].ID)

	require.NoError(t, store.DeleteByUser(ctx, alice.ID))
	list, err = store.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Get(ctx, s3.ID)
	assert.NoError(t, err, "other users' sessions survive")
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	store := NewSessionStore(db)
	user := seedSessionUser(t, db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Create(ctx, newTestSession(user.ID, "fp-past", now.Add(-time.Minute))))
	require.NoError(t, store.Create(ctx, newTestSession(user.ID, "fp-now", now)))
	require.NoError(t, store.Create(ctx, newTestSession(user.ID, "fp-future", now.Add(time.Minute))))

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "expires_at == now counts as expired")

	n, err = store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.GetByFingerprint(ctx, "fp-future")
	assert.NoError(t, err)
}

func TestSessionStore_CascadeOnUserDelete(t *testing.T) {
	db := setupTestDB(t)
	store := NewSessionStore(db)
	user := seedSessionUser(t, db)
	ctx := context.Background()

	session := newTestSession(user.ID, "fp-cascade", time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, session))

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", user.ID)
		return err
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
