package rate

import "errors"

var (
	// ErrRateLimited indicates the caller exceeded its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable indicates the rate limit backend is unreachable.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
