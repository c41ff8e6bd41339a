package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store down")
}

func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("store down")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("store down")
}

func newTestLimiter(store TTLStore) (*Limiter, *time.Time) {
	l := New(store, Config{MaxAttempts: 5, Window: 15 * time.Minute, Lockout: 30 * time.Minute}, nil)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckAllowsFreshIdentifier(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())

	decision := l.Check(context.Background(), "student-login", "student:a:1")
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
	assert.False(t, decision.FailOpen)
}

func TestLockoutAfterMaxFailures(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision := l.Check(ctx, "student-login", "student:a:1")
		assert.True(t, decision.Allowed, "attempt %d should be allowed", i+1)
		l.RecordFailure(ctx, "student-login", "student:a:1")
	}

	decision := l.Check(ctx, "student-login", "student:a:1")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 30, decision.RetryAfterMinutes)
}

func TestLockedCheckDoesNotExtendLockout(t *testing.T) {
	l, now := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.RecordFailure(ctx, "student-login", "student:a:1")
	}
	first := l.Check(ctx, "student-login", "student:a:1")
	assert.False(t, first.Allowed)

	// Repeated checks 10 minutes later shrink the retry hint instead of
	// resetting it.
	*now = now.Add(10 * time.Minute)
	second := l.Check(ctx, "student-login", "student:a:1")
	assert.False(t, second.Allowed)
	assert.Equal(t, 20, second.RetryAfterMinutes)
}

func TestLockoutExpires(t *testing.T) {
	l, now := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.RecordFailure(ctx, "student-login", "student:a:1")
	}
	assert.False(t, l.Check(ctx, "student-login", "student:a:1").Allowed)

	// Past the lockout the stale attempts have also aged out of the window.
	*now = now.Add(31 * time.Minute)
	decision := l.Check(ctx, "student-login", "student:a:1")
	assert.True(t, decision.Allowed)
}

func TestResetClearsState(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.RecordFailure(ctx, "student-login", "student:a:1")
	}
	l.Reset(ctx, "student-login", "student:a:1")

	decision := l.Check(ctx, "student-login", "student:a:1")
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}

func TestWindowPruning(t *testing.T) {
	l, now := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.RecordFailure(ctx, "student-login", "student:a:1")
	}
	// Old failures fall out of the 15 minute window.
	*now = now.Add(16 * time.Minute)
	l.RecordFailure(ctx, "student-login", "student:a:1")

	decision := l.Check(ctx, "student-login", "student:a:1")
	assert.True(t, decision.Allowed)
	assert.Equal(t, 3, decision.Remaining)
}

func TestFailOpenOnStoreError(t *testing.T) {
	l, _ := newTestLimiter(failingStore{})

	decision := l.Check(context.Background(), "student-login", "student:a:1")
	assert.True(t, decision.Allowed)
	assert.True(t, decision.FailOpen)
}

func TestFailOpenOnCorruptState(t *testing.T) {
	store := NewMemoryStore()
	l, _ := newTestLimiter(store)
	ctx := context.Background()

	_ = store.Set(ctx, key("student-login", "student:a:1"), "{not json", time.Hour)

	decision := l.Check(ctx, "student-login", "student:a:1")
	assert.True(t, decision.Allowed)
	assert.True(t, decision.FailOpen)
}

func TestIdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.RecordFailure(ctx, "student-login", "student:a:1")
	}
	assert.False(t, l.Check(ctx, "student-login", "student:a:1").Allowed)
	assert.True(t, l.Check(ctx, "student-login", "student:b:2").Allowed)
	assert.True(t, l.Check(ctx, "teacher-login", "student:a:1").Allowed)
}
