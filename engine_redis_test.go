package goSession

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func newRedisEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := New().
		WithConfig(cfg).
		WithTokenStore(newMemoryTokenStore()).
		WithRedis(client).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func TestRedisBackedGraceWindow(t *testing.T) {
	engine, mr := newRedisEngine(t, nil)

	c1, err := engine.OnLoginSuccess(context.Background(), alice, ClientContext{})
	if err != nil {
		t.Fatalf("OnLoginSuccess failed: %v", err)
	}

	// First presentation rotates and parks the old pair in Redis.
	first := mustAutoLogin(t, engine, c1.Value)
	if first.Status != AutoLoginSuccess {
		t.Fatalf("status = %v, want success", first.Status)
	}

	// A concurrent instance replaying the superseded cookie hits the shared
	// grace record instead of flagging theft.
	replay := mustAutoLogin(t, engine, c1.Value)
	if replay.Status != AutoLoginSuccess {
		t.Fatalf("in-grace replay status = %v, want success", replay.Status)
	}
	if replay.Identity == nil || replay.Identity.Login != "alice" {
		t.Fatalf("in-grace identity = %+v", replay.Identity)
	}

	// After the grace TTL the same replay is theft.
	mr.FastForward(6 * time.Second)
	if late := mustAutoLogin(t, engine, c1.Value); late.Status != AutoLoginTheft {
		t.Fatalf("post-grace replay status = %v, want theft", late.Status)
	}
}

func TestAutoLoginThrottle(t *testing.T) {
	engine, mr := newRedisEngine(t, func(cfg *Config) {
		cfg.RateLimit.EnableAutoLoginThrottle = true
		cfg.RateLimit.MaxAutoLoginFailures = 3
		cfg.RateLimit.AutoLoginCooldown = time.Minute
	})

	// A well-signed cookie naming a series the store has never seen: each
	// attempt burns failure budget.
	unknown := signRememberValue(testConfig().RememberMe.SecretKey, "no-such-series", "value", time.Now().Add(time.Hour))

	for i := 0; i < 3; i++ {
		result := mustAutoLogin(t, engine, unknown)
		if result.Status != AutoLoginNoSuchSeries {
			t.Fatalf("attempt %d status = %v, want no such series", i, result.Status)
		}
	}

	if _, err := engine.ProcessAutoLogin(context.Background(), unknown, ClientContext{}); !errors.Is(err, ErrAutoLoginRateLimited) {
		t.Fatalf("err = %v, want ErrAutoLoginRateLimited", err)
	}
	if engine.MetricsSnapshot().Counters[MetricAutoLoginRateLimited] != 1 {
		t.Fatal("rate-limited attempts must be counted")
	}

	// The cooldown expires the budget.
	mr.FastForward(2 * time.Minute)
	if result := mustAutoLogin(t, engine, unknown); result.Status != AutoLoginNoSuchSeries {
		t.Fatalf("post-cooldown status = %v, want no such series", result.Status)
	}
}

func TestAutoLoginThrottleResetsOnSuccess(t *testing.T) {
	engine, mr := newRedisEngine(t, func(cfg *Config) {
		cfg.RateLimit.EnableAutoLoginThrottle = true
		cfg.RateLimit.MaxAutoLoginFailures = 2
		cfg.RateLimit.AutoLoginCooldown = time.Minute
	})

	c1, err := engine.OnLoginSuccess(context.Background(), alice, ClientContext{})
	if err != nil {
		t.Fatalf("OnLoginSuccess failed: %v", err)
	}
	series, _, err := parseRememberValue(testConfig().RememberMe.SecretKey, c1.Value, time.Now())
	if err != nil {
		t.Fatalf("parse issued cookie: %v", err)
	}

	// Accumulated failures under the budget do not block a legitimate
	// rotation, and the rotation clears them.
	counterKey := "gsal:" + series
	if err := mr.Set(counterKey, "1"); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	if result := mustAutoLogin(t, engine, c1.Value); result.Status != AutoLoginSuccess {
		t.Fatalf("status = %v, want success", result.Status)
	}
	if mr.Exists(counterKey) {
		t.Fatal("successful rotation must reset the failure counter")
	}
}

func TestRefreshThrottle(t *testing.T) {
	refresh := "opaque-refresh-value"
	newAccess := func(t *testing.T) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(5 * time.Minute).Unix(),
		}).SignedString([]byte("upstream-signing-key"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return token
	}(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + newAccess + `","refresh_token":""}`))
	}))
	t.Cleanup(server.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.Relay.TokenEndpoint = server.URL
	cfg.RateLimit.EnableRefreshThrottle = true
	cfg.RateLimit.MaxRefreshAttempts = 2
	cfg.RateLimit.RefreshCooldown = time.Minute

	engine, err := New().WithConfig(cfg).WithTokenStore(newMemoryTokenStore()).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	for i := 0; i < 2; i++ {
		req := refreshRequest(&http.Cookie{Name: "refresh_token", Value: refresh})
		if _, err := engine.Refresh(httptest.NewRecorder(), req); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
	}

	req := refreshRequest(&http.Cookie{Name: "refresh_token", Value: refresh})
	if _, err := engine.Refresh(httptest.NewRecorder(), req); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("err = %v, want ErrRefreshRateLimited", err)
	}
}
