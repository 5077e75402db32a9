package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates periodic work across instances.
// The session sweeper takes it so that one instance sweeps per cycle.
type DistributedLock interface {
	// Acquire tries to take the named lock for ttl. It returns false
	// without error when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock up. Releasing a lock that is not held or has
	// expired is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a held lock out to ttl from now.
	// Advisory-lock backends have no TTL and treat this as a hold check.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks that the lock backend is reachable
	Ping(ctx context.Context) error
}
