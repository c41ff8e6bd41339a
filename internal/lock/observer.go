package lock

import (
	"context"
	"errors"
	"time"
)

type observedLocker struct {
	inner     Locker
	onTimeout func()
}

// WithObserver wraps a locker so every acquisition abandoned to
// ErrNotAcquired is reported.
func WithObserver(inner Locker, onTimeout func()) Locker {
	if onTimeout == nil {
		return inner
	}
	return &observedLocker{inner: inner, onTimeout: onTimeout}
}

func (l *observedLocker) Acquire(ctx context.Context, wait time.Duration) (ReleaseFunc, error) {
	release, err := l.inner.Acquire(ctx, wait)
	if errors.Is(err, ErrNotAcquired) {
		l.onTimeout()
	}
	return release, err
}
