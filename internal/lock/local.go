package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is a single-process Locker used by tests and setups without
// Redis. A buffered channel of one models the lock token.
type LocalLocker struct {
	slot chan struct{}
}

// NewLocalLocker constructs an unheld local lock.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slot: make(chan struct{}, 1)}
}

// Acquire waits up to the given duration for the slot.
func (l *LocalLocker) Acquire(ctx context.Context, wait time.Duration) (ReleaseFunc, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-l.slot })
		}, nil
	case <-timer.C:
		return nil, ErrNotAcquired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
