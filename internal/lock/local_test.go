package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerAcquireRelease(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	release()

	// The slot is free again.
	release, err = l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	release()
}

func TestLocalLockerContention(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	release2, err := l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	release2()
}

func TestLocalLockerDoubleRelease(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	release()
	release()

	_, err = l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
}

func TestLocalLockerContextCancel(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
