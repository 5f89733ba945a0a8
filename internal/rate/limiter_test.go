package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestAutoLoginBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableAutoLoginThrottle: true,
		MaxAutoLoginFailures:    3,
		AutoLoginCooldown:       time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("fresh series check failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := limiter.IncrementAutoLogin(ctx, "s1"); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := limiter.CheckAutoLogin(ctx, "s1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited at budget", err)
	}
	if err := limiter.IncrementAutoLogin(ctx, "s1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited past budget", err)
	}

	// Budgets are per series.
	if err := limiter.CheckAutoLogin(ctx, "s2"); err != nil {
		t.Fatalf("unrelated series check failed: %v", err)
	}
}

func TestAutoLoginReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableAutoLoginThrottle: true,
		MaxAutoLoginFailures:    1,
		AutoLoginCooldown:       time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := limiter.CheckAutoLogin(ctx, "s1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if err := limiter.ResetAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := limiter.CheckAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("check after reset: %v", err)
	}
}

func TestAutoLoginCooldownExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		EnableAutoLoginThrottle: true,
		MaxAutoLoginFailures:    1,
		AutoLoginCooldown:       time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := limiter.CheckAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("check after cooldown: %v", err)
	}
}

func TestRefreshBudget(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		EnableRefreshThrottle: true,
		MaxRefreshAttempts:    2,
		RefreshCooldown:       time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRefresh(ctx, "hash"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := limiter.CheckRefresh(ctx, "hash"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := limiter.CheckRefresh(ctx, "hash"); err != nil {
		t.Fatalf("attempt after cooldown: %v", err)
	}
}

func TestDisabledThrottles(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := limiter.CheckAutoLogin(ctx, "s1"); err != nil {
			t.Fatalf("disabled auto-login check: %v", err)
		}
		if err := limiter.CheckRefresh(ctx, "hash"); err != nil {
			t.Fatalf("disabled refresh check: %v", err)
		}
	}
}

func TestNilLimiter(t *testing.T) {
	var limiter *Limiter
	ctx := context.Background()

	if err := limiter.CheckAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("nil limiter check: %v", err)
	}
	if err := limiter.IncrementAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("nil limiter increment: %v", err)
	}
	if err := limiter.ResetAutoLogin(ctx, "s1"); err != nil {
		t.Fatalf("nil limiter reset: %v", err)
	}
	if err := limiter.CheckRefresh(ctx, "hash"); err != nil {
		t.Fatalf("nil limiter refresh check: %v", err)
	}
}
