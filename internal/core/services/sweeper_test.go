package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/parranda-auth/internal/core/domain"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven/mocks"
)

type recordingMetrics struct {
	mu      sync.Mutex
	removed int64
	runs    int
	errors  int
}

func (m *recordingMetrics) RecordAuth(string, string) {}

func (m *recordingMetrics) RecordSweep(removed int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.removed += removed
	if err != nil {
		m.errors++
	}
}

func (m *recordingMetrics) snapshot() (runs int, removed int64, errs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs, m.removed, m.errors
}

func seedExpired(t *testing.T, mgr *SessionManager, clock *testClock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := mgr.Create(context.Background(), "user-1", "fp-"+string(rune('a'+i)), clock.now.Add(time.Second), domain.SessionMetadata{})
		require.NoError(t, err)
	}
	clock.now = clock.now.Add(time.Second)
}

func TestSweeper_SweepOnce(t *testing.T) {
	store, clock, mgr := newTestSessionManager()
	seedExpired(t, mgr, clock, 3)
	lock := mocks.NewMockDistributedLock()
	metrics := &recordingMetrics{}

	sweeper := NewSweeper(SweeperConfig{Sessions: mgr, Lock: lock, Metrics: metrics})

	removed, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, 0, store.Count())
	assert.False(t, lock.IsHeld(SweepLockName), "lock should be released after sweep")

	acquired, released := lock.Counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)

	runs, total, errs := metrics.snapshot()
	assert.Equal(t, 1, runs)
	assert.Equal(t, int64(3), total)
	assert.Zero(t, errs)
}

func TestSweeper_SkipsWhenLockHeld(t *testing.T) {
	store, clock, mgr := newTestSessionManager()
	seedExpired(t, mgr, clock, 2)
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(SweepLockName, time.Minute)

	sweeper := NewSweeper(SweeperConfig{Sessions: mgr, Lock: lock})

	removed, err := sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 2, store.Count())
}

func TestSweeper_LockError(t *testing.T) {
	tests := []struct {
		name         string
		lockRequired bool
		wantRemoved  int64
	}{
		{"required lock skips cycle", true, 0},
		{"optional lock sweeps anyway", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, clock, mgr := newTestSessionManager()
			seedExpired(t, mgr, clock, 1)
			lock := mocks.NewMockDistributedLock()
			lock.AcquireFn = func(string, time.Duration) (bool, error) {
				return false, errors.New("redis down")
			}

			sweeper := NewSweeper(SweeperConfig{Sessions: mgr, Lock: lock, LockRequired: tt.lockRequired})

			removed, err := sweeper.SweepOnce(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

func TestSweeper_StoreError(t *testing.T) {
	store, _, mgr := newTestSessionManager()
	store.Err = errors.New("connection reset")
	metrics := &recordingMetrics{}

	sweeper := NewSweeper(SweeperConfig{Sessions: mgr, Metrics: metrics})

	_, err := sweeper.SweepOnce(context.Background())
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))

	_, _, errs := metrics.snapshot()
	assert.Equal(t, 1, errs)
}

func TestSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	store, clock, mgr := newTestSessionManager()
	seedExpired(t, mgr, clock, 2)
	metrics := &recordingMetrics{}

	sweeper := NewSweeper(SweeperConfig{
		Sessions: mgr,
		Metrics:  metrics,
		Interval: 10 * time.Millisecond,
	})

	require.NoError(t, sweeper.Start(context.Background()))
	require.NoError(t, sweeper.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool {
		runs, _, _ := metrics.snapshot()
		return runs >= 2
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop() // Safe to call twice

	assert.Equal(t, 0, store.Count())
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, _, mgr := newTestSessionManager()
	sweeper := NewSweeper(SweeperConfig{Sessions: mgr, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sweeper.Start(ctx))
	cancel()

	// Stop waits for the loop to observe cancellation and exit.
	sweeper.Stop()
}

func TestNewSweeper_Defaults(t *testing.T) {
	_, _, mgr := newTestSessionManager()
	sweeper := NewSweeper(SweeperConfig{Sessions: mgr})

	assert.Equal(t, time.Hour, sweeper.interval)
	assert.Equal(t, 5*time.Minute, sweeper.lockTTL)
	assert.NotNil(t, sweeper.logger)
}
