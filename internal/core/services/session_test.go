package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven/mocks"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestSessionManager() (*mocks.MockSessionStore, *testClock, *SessionManager) {
	store := mocks.NewMockSessionStore()
	clock := &testClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	return store, clock, NewSessionManager(store, clock.Now)
}

func TestSessionManager_Create(t *testing.T) {
	store, clock, mgr := newTestSessionManager()
	ctx := context.Background()

	session, err := mgr.Create(ctx, "user-1", "fp-1", clock.now.Add(time.Hour), domain.SessionMetadata{UserAgent: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID == "" {
		t.Error("expected session ID")
	}
	if !session.CreatedAt.Equal(clock.now) {
		t.Errorf("expected CreatedAt %v, got %v", clock.now, session.CreatedAt)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 stored session, got %d", store.Count())
	}
	if session.State(clock.now) != domain.SessionActive {
		t.Errorf("expected new session to be active")
	}
}

func TestSessionManager_Create_InvalidInput(t *testing.T) {
	_, clock, mgr := newTestSessionManager()
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    string
		fp        string
		expiresAt time.Time
	}{
		{"missing user", "", "fp", clock.now.Add(time.Hour)},
		{"missing fingerprint", "user-1", "", clock.now.Add(time.Hour)},
		{"already expired", "user-1", "fp", clock.now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Create(ctx, tt.userID, tt.fp, tt.expiresAt, domain.SessionMetadata{})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSessionManager_LookupAndUsable(t *testing.T) {
	_, clock, mgr := newTestSessionManager()
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "user-1", "fp-1", clock.now.Add(time.Minute), domain.SessionMetadata{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	session, err := mgr.Lookup(ctx, "fp-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !mgr.IsUsable(session) {
		t.Error("expected session to be usable")
	}

	clock.now = clock.now.Add(time.Minute)
	if mgr.IsUsable(session) {
		t.Error("expected session to be unusable at expiry")
	}
	if mgr.IsUsable(nil) {
		t.Error("nil session is never usable")
	}

	if _, err := mgr.Lookup(ctx, "fp-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionManager_Revoke(t *testing.T) {
	store, clock, mgr := newTestSessionManager()
	ctx := context.Background()

	s1, _ := mgr.Create(ctx, "user-1", "fp-1", clock.now.Add(time.Hour), domain.SessionMetadata{})
	_, _ = mgr.Create(ctx, "user-1", "fp-2", clock.now.Add(time.Hour), domain.SessionMetadata{})
	_, _ = mgr.Create(ctx, "user-2", "fp-3", clock.now.Add(time.Hour), domain.SessionMetadata{})

	if err := mgr.Revoke(ctx, s1.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := mgr.Revoke(ctx, s1.ID); err != nil {
		t.Fatalf("second revoke should succeed: %v", err)
	}
	if err := mgr.RevokeByFingerprint(ctx, "fp-2"); err != nil {
		t.Fatalf("revoke by fingerprint: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 session left, got %d", store.Count())
	}

	if err := mgr.RevokeAll(ctx, "user-2"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("expected no sessions left, got %d", store.Count())
	}
}

func TestSessionManager_SweepExpired(t *testing.T) {
	_, clock, mgr := newTestSessionManager()
	ctx := context.Background()

	_, _ = mgr.Create(ctx, "user-1", "fp-1", clock.now.Add(time.Minute), domain.SessionMetadata{})
	_, _ = mgr.Create(ctx, "user-1", "fp-2", clock.now.Add(2*time.Minute), domain.SessionMetadata{})
	_, _ = mgr.Create(ctx, "user-1", "fp-3", clock.now.Add(time.Hour), domain.SessionMetadata{})

	clock.now = clock.now.Add(2 * time.Minute)

	n, err := mgr.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 swept (boundary inclusive), got %d", n)
	}

	n, _ = mgr.SweepExpired(ctx)
	if n != 0 {
		t.Errorf("expected repeat sweep to remove nothing, got %d", n)
	}
}

func TestSessionManager_StoreErrorsAreUnavailable(t *testing.T) {
	store, clock, mgr := newTestSessionManager()
	store.Err = errors.New("redis: connection refused")
	ctx := context.Background()

	_, err := mgr.Create(ctx, "user-1", "fp", clock.now.Add(time.Hour), domain.SessionMetadata{})
	if domain.KindOf(err) != domain.KindUnavailable {
		t.Errorf("create: expected unavailable, got %v", err)
	}
	if _, err := mgr.Lookup(ctx, "fp"); domain.KindOf(err) != domain.KindUnavailable {
		t.Errorf("lookup: expected unavailable, got %v", err)
	}
	if err := mgr.Revoke(ctx, "id"); domain.KindOf(err) != domain.KindUnavailable {
		t.Errorf("revoke: expected unavailable, got %v", err)
	}
	if _, err := mgr.SweepExpired(ctx); domain.KindOf(err) != domain.KindUnavailable {
		t.Errorf("sweep: expected unavailable, got %v", err)
	}
}
