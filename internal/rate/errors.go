package rate

import "errors"

var (
	// ErrRateLimited reports an exhausted attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis backend failures.
	ErrRedisUnavailable = errors.New("rate limiter backend unavailable")
)
