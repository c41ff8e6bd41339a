package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKey = "storybook:write_lock"

// releaseScript deletes the lock only if it is still held by the caller's
// token, so a lease that expired and was re-acquired by another writer is
// never released by the original holder.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker implements Locker over a Redis lease. The lease is the backstop
// for requests that die mid-critical-section: an abandoned lock expires after
// the lease duration instead of deadlocking all writers.
type RedisLocker struct {
	client *redis.Client
	lease  time.Duration
	poll   time.Duration
	logger *zap.Logger
}

// NewRedisLocker constructs the lock with the given maximum hold lease.
func NewRedisLocker(client *redis.Client, lease time.Duration, logger *zap.Logger) *RedisLocker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, lease: lease, poll: 100 * time.Millisecond, logger: logger}
}

// Acquire polls SET NX until the wait window elapses.
func (l *RedisLocker) Acquire(ctx context.Context, wait time.Duration) (ReleaseFunc, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaseFunc(token), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) releaseFunc(token string) ReleaseFunc {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{lockKey}, token).Err(); err != nil {
			l.logger.Warn("write lock release failed, lease will expire it", zap.Error(err))
		}
	}
}
