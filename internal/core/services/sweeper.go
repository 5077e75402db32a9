package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/parranda-auth/internal/core/ports/driven"
	"github.com/custodia-labs/parranda-auth/internal/core/ports/driving"
)

// Ensure Sweeper implements SessionSweeper
var _ driving.SessionSweeper = (*Sweeper)(nil)

// SweepLockName is the distributed lock taken around each sweep
const SweepLockName = "session-sweep"

// Sweeper periodically deletes expired sessions.
//
// For multi-instance deployments, configure a DistributedLock so that only
// one instance sweeps per cycle. Sweeping twice is harmless, so losing the
// lock simply skips the cycle.
type Sweeper struct {
	sessions *SessionManager
	lock     driven.DistributedLock
	metrics  driven.AuthMetrics
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL      time.Duration
	lockRequired bool
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	Sessions     *SessionManager
	Lock         driven.DistributedLock // Optional
	Metrics      driven.AuthMetrics     // Optional
	Logger       *slog.Logger
	Interval     time.Duration // How often to sweep (default: 1h)
	LockTTL      time.Duration // TTL for the distributed lock (default: 5m)
	LockRequired bool          // Skip the cycle when the lock backend errors
}

// NewSweeper creates a new session sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}

	return &Sweeper{
		sessions:     cfg.Sessions,
		lock:         cfg.Lock,
		metrics:      metrics,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("session sweeper starting", "interval", s.interval)

	go s.run(ctx, s.stopCh, s.doneCh)

	return nil
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("session sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper context cancelled")
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.Error("session sweep failed", "error", err)
	}
}

// SweepOnce runs one sweep cycle. It returns zero without error when another
// instance holds the sweep lock.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, SweepLockName, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("failed to acquire sweep lock", "error", err)
			if s.lockRequired {
				return 0, nil
			}
		case !acquired:
			s.logger.Debug("sweep lock held by another instance, skipping cycle")
			return 0, nil
		default:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), SweepLockName); err != nil {
					s.logger.Warn("failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	removed, err := s.sessions.SweepExpired(ctx)
	s.metrics.RecordSweep(removed, err)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Info("expired sessions swept", "count", removed)
	} else {
		s.logger.Debug("no expired sessions to sweep")
	}
	return removed, nil
}
