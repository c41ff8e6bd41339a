// Package ratelimit implements the sliding-window attempt counter and timed
// lockout defending the login endpoints. A sliding window (not a calendar
// window) closes the boundary-burst loophole; the lockout is a hard stop
// rather than exponential backoff because a six-digit PIN space is best
// defended by a short, firm freeze.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Config sets the limiter thresholds.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterMinutes int
	// FailOpen marks an allow decision taken because stored state could not
	// be read. Availability is chosen over lockout strictness here, by policy.
	FailOpen bool
}

type state struct {
	Attempts    []time.Time `json:"attempts"`
	LockedUntil *time.Time  `json:"lockedUntil,omitempty"`
}

// Limiter is the per-identifier lockout state machine.
type Limiter struct {
	store  TTLStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	// OnLockout, when set, observes each escalation to a lockout
	// (metrics hook).
	OnLockout func(action string)
}

// New constructs a limiter.
func New(store TTLStore, cfg Config, logger *zap.Logger) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: store, cfg: cfg, logger: logger, now: time.Now}
}

func key(action, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", action, identifier)
}

// Check reports whether an attempt may proceed. Reaching the attempt ceiling
// inside the window escalates to a lockout here; a check made while already
// locked records nothing, so repeated checks cannot extend the lockout.
func (l *Limiter) Check(ctx context.Context, action, identifier string) Decision {
	st, ok := l.load(ctx, action, identifier)
	if !ok {
		return Decision{Allowed: true, Remaining: l.cfg.MaxAttempts - 1, FailOpen: true}
	}

	now := l.now()
	if st.LockedUntil != nil && now.Before(*st.LockedUntil) {
		return Decision{Allowed: false, RetryAfterMinutes: minutesUntil(now, *st.LockedUntil)}
	}

	st.Attempts = pruneWindow(st.Attempts, now, l.cfg.Window)
	if len(st.Attempts) >= l.cfg.MaxAttempts {
		until := now.Add(l.cfg.Lockout)
		st.LockedUntil = &until
		l.save(ctx, action, identifier, st, l.cfg.Lockout+l.cfg.Window)
		l.logger.Info("login lockout engaged", zap.String("action", action))
		if l.OnLockout != nil {
			l.OnLockout(action)
		}
		return Decision{Allowed: false, RetryAfterMinutes: minutesUntil(now, until)}
	}

	remaining := l.cfg.MaxAttempts - len(st.Attempts) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}
}

// RecordFailure appends an attempt timestamp. Called only after a failed
// credential check, never for a check denied while locked.
func (l *Limiter) RecordFailure(ctx context.Context, action, identifier string) {
	st, ok := l.load(ctx, action, identifier)
	if !ok {
		st = state{}
	}
	now := l.now()
	st.Attempts = append(pruneWindow(st.Attempts, now, l.cfg.Window), now)
	l.save(ctx, action, identifier, st, l.cfg.Window+time.Minute)
}

// Reset clears the identifier entirely; called on successful authentication.
func (l *Limiter) Reset(ctx context.Context, action, identifier string) {
	if err := l.store.Delete(ctx, key(action, identifier)); err != nil {
		l.logger.Warn("rate limit reset failed", zap.String("action", action), zap.Error(err))
	}
}

// load returns the stored state. The second return is false only when the
// state exists but cannot be trusted (store or parse failure): the caller
// then fails open.
func (l *Limiter) load(ctx context.Context, action, identifier string) (state, bool) {
	raw, found, err := l.store.Get(ctx, key(action, identifier))
	if err != nil {
		l.logger.Warn("rate limit state unreadable, failing open", zap.String("action", action), zap.Error(err))
		return state{}, false
	}
	if !found {
		return state{}, true
	}
	var st state
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		l.logger.Warn("rate limit state corrupt, failing open", zap.String("action", action), zap.Error(err))
		return state{}, false
	}
	return st, true
}

func (l *Limiter) save(ctx context.Context, action, identifier string, st state, ttl time.Duration) {
	raw, err := json.Marshal(st)
	if err != nil {
		l.logger.Warn("rate limit state marshal failed", zap.Error(err))
		return
	}
	if err := l.store.Set(ctx, key(action, identifier), string(raw), ttl); err != nil {
		l.logger.Warn("rate limit state write failed", zap.String("action", action), zap.Error(err))
	}
}

func pruneWindow(attempts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

func minutesUntil(now, until time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}
