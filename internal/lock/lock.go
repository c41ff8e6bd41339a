// Package lock provides the advisory write lock serializing every multi-step
// mutation against the row store. The lock is deliberately coarse: a single
// process-wide token all mutating handlers compete for, favoring correctness
// over throughput at classroom concurrency.
package lock

import (
	"context"
	"time"
)

// ReleaseFunc releases a held lock. It must run on every exit path of the
// critical section; implementations tolerate double calls.
type ReleaseFunc func()

// Locker acquires the advisory write lock with a bounded wait. A wait that
// elapses returns ErrNotAcquired, a retryable condition, never a panic.
type Locker interface {
	Acquire(ctx context.Context, wait time.Duration) (ReleaseFunc, error)
}

// ErrNotAcquired reports that the lock was not obtained within the wait
// window. Callers surface it as "try again shortly", not as a fatal error.
var ErrNotAcquired = errNotAcquired{}

type errNotAcquired struct{}

func (errNotAcquired) Error() string { return "write lock not acquired within wait window" }
