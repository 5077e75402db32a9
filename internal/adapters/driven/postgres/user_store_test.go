package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func newTestUser(email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: strPtr("$2a$04$digest"),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserStore_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	user := newTestUser("Alice@Example.com")
	user.FullName = strPtr("Alice")
	user.Alias = strPtr("alice")
	require.NoError(t, store.Create(ctx, user))

	got, err := store.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Alice", *got.FullName)
	assert.Equal(t, "alice", *got.Alias)
	assert.Nil(t, got.Phone)
	assert.Equal(t, "$2a$04$digest", *got.PasswordHash)
	assert.True(t, got.Active)

	byEmail, err := store.GetByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byAlias, err := store.GetByAlias(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byAlias.ID)

	_, err = store.GetByAlias(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrNotFound, "alias lookup is case-sensitive")
}

func TestUserStore_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	_, err := store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.UpdateFields(ctx, uuid.NewString(), domain.UserUpdate{FullName: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserStore_UniqueViolations(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	first := newTestUser("alice@example.com")
	first.Alias = strPtr("alice")
	require.NoError(t, store.Create(ctx, first))

	sameEmail := newTestUser("ALICE@example.com")
	assert.ErrorIs(t, store.Create(ctx, sameEmail), domain.ErrAlreadyExists)

	sameAlias := newTestUser("bob@example.com")
	sameAlias.Alias = strPtr("alice")
	assert.ErrorIs(t, store.Create(ctx, sameAlias), domain.ErrAlreadyExists)

	bob := newTestUser("bob@example.com")
	require.NoError(t, store.Create(ctx, bob))
	_, err := store.UpdateFields(ctx, bob.ID, domain.UserUpdate{Alias: strPtr("alice")})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUserStore_UpdateFields(t *testing.T) {
	db := setupTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	user := newTestUser("alice@example.com")
	user.FullName = strPtr("Alice")
	require.NoError(t, store.Create(ctx, user))

	inactive := false
	updated, err := store.UpdateFields(ctx, user.ID, domain.UserUpdate{
		Phone:        strPtr("+34 600 000 000"),
		PasswordHash: strPtr("$2a$04$other"),
		Active:       &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *updated.FullName, "nil fields are left alone")
	assert.Equal(t, "+34 600 000 000", *updated.Phone)
	assert.Equal(t, "$2a$04$other", *updated.PasswordHash)
	assert.False(t, updated.Active)
	assert.False(t, updated.UpdatedAt.Before(user.UpdatedAt))
}
