package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableAutoLoginThrottle bool
	MaxAutoLoginFailures    int
	AutoLoginCooldown       time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldown         time.Duration
}

// Limiter enforces per-series and per-refresh-token rate limits using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckAutoLogin checks whether the series is within its failure budget.
// Returns an error if rate-limited.
func (l *Limiter) CheckAutoLogin(ctx context.Context, series string) error {
	if l == nil || !l.config.EnableAutoLoginThrottle {
		return nil
	}
	return l.checkCounter(ctx, autoLoginKey(series), l.config.MaxAutoLoginFailures)
}

// IncrementAutoLogin records a failed auto-login attempt for the series.
func (l *Limiter) IncrementAutoLogin(ctx context.Context, series string) error {
	if l == nil || !l.config.EnableAutoLoginThrottle {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, autoLoginKey(series), l.config.AutoLoginCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAutoLoginFailures) {
		return ErrRateLimited
	}
	return nil
}

// ResetAutoLogin clears the failure counter for the series. Called after a
// successful rotation.
func (l *Limiter) ResetAutoLogin(ctx context.Context, series string) error {
	if l == nil || !l.config.EnableAutoLoginThrottle {
		return nil
	}
	if err := l.redis.Del(ctx, autoLoginKey(series)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh enforces the refresh limit by incrementing the per-token
// counter and applying the cooldown TTL.
func (l *Limiter) CheckRefresh(ctx context.Context, tokenHash string) error {
	if l == nil || !l.config.EnableRefreshThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, refreshKey(tokenHash), l.config.RefreshCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, limit int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(limit) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

func autoLoginKey(series string) string {
	return "gsal:" + series
}

func refreshKey(tokenHash string) string {
	return "gsrf:" + tokenHash
}
