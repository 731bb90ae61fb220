package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the failed-login lockout tracker.
type LockoutConfig struct {
	Enabled   bool
	Threshold int           // failures within Window that trigger a lock
	Window    time.Duration // counting window for failures
	Duration  time.Duration // how long a triggered lock lasts
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// Lockout tracks failed login attempts per email and locks further attempts
// once the configured threshold is reached inside the counting window.
type Lockout struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockout creates a new lockout tracker.
func NewLockout(redisClient redis.UniversalClient, cfg LockoutConfig) *Lockout {
	return &Lockout{redis: redisClient, config: cfg}
}

func (l *Lockout) failKey(email string) string {
	return "lf:" + email
}

func (l *Lockout) lockKey(email string) string {
	return "lk:" + email
}

// RecordFailure increments the failure counter for an email.
// Returns true if this failure reached the threshold and locked the account.
func (l *Lockout) RecordFailure(ctx context.Context, email string) (bool, error) {
	if !l.config.Enabled || email == "" {
		return false, nil
	}

	count, err := l.redis.Incr(ctx, l.failKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count == 1 && l.config.Window > 0 {
		// TTL set on the first failure only. The window tumbles: failures
		// after expiry start a fresh count rather than sliding the deadline.
		if err := l.redis.Expire(ctx, l.failKey(email), l.config.Window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	if count < int64(l.config.Threshold) {
		return false, nil
	}

	if err := l.redis.Set(ctx, l.lockKey(email), count, l.config.Duration).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return true, nil
}

// IsLocked reports whether the email is currently locked out.
func (l *Lockout) IsLocked(ctx context.Context, email string) (bool, error) {
	if !l.config.Enabled || email == "" {
		return false, nil
	}

	n, err := l.redis.Exists(ctx, l.lockKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return n > 0, nil
}

// Remaining returns how long the current lock has left to run.
// Returns zero when the email is not locked.
func (l *Lockout) Remaining(ctx context.Context, email string) (time.Duration, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	ttl, err := l.redis.TTL(ctx, l.lockKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if ttl < 0 {
		// -2 key missing, -1 no expiry; neither counts as an active lock here.
		return 0, nil
	}
	return ttl, nil
}

// Reset clears the failure counter and any active lock for an email
// (after successful login or manual unlock).
func (l *Lockout) Reset(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.failKey(email), l.lockKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current failure count for an email.
func (l *Lockout) FailureCount(ctx context.Context, email string) (int, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.failKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
