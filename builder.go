package goSession

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/internal/stores"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	tokenStore TokenStore
	userStore  UserStore
	redis      redis.UniversalClient
	auditSink  AuditSink
	httpClient *http.Client

	built bool
}

// New describes the new operation and its observable behavior.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithTokenStore describes the withtokenstore operation and its observable behavior.
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.tokenStore = store
	return b
}

// WithUserStore describes the withuserstore operation and its observable behavior.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithRedis installs a Redis client used for the shared rotation-grace
// cache and, when enabled, the auto-login/refresh rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient overrides the HTTP client used for upstream grant calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// Build validates the configuration, wires the engine, and starts the
// background cache purge goroutines. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, fmt.Errorf("%w: builder already used", ErrInvalidConfiguration)
	}
	if b.tokenStore == nil {
		return nil, fmt.Errorf("%w: token store required", ErrInvalidConfiguration)
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	b.built = true

	e := &Engine{
		config:     b.config,
		tokenStore: b.tokenStore,
		userStore:  b.userStore,
		locks:      newSeriesLocks(),
		metrics:    NewMetrics(b.config.Metrics),
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
		httpClient: b.httpClient,
		now:        time.Now,
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{}
	}

	slots, err := cache.New[string, *refreshSlot](
		b.config.Relay.CoalesceTTL,
		b.config.Relay.CoalescePurgeInterval,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	e.slots = slots

	if b.redis != nil {
		e.rotation = newRedisRotationCache(stores.NewRotationCache(
			b.redis, "", b.config.RememberMe.RotationGraceTTL,
		))
		if b.config.RateLimit.EnableAutoLoginThrottle || b.config.RateLimit.EnableRefreshThrottle {
			e.rateLimiter = rate.New(b.redis, rate.Config{
				EnableAutoLoginThrottle: b.config.RateLimit.EnableAutoLoginThrottle,
				MaxAutoLoginFailures:    b.config.RateLimit.MaxAutoLoginFailures,
				AutoLoginCooldown:       b.config.RateLimit.AutoLoginCooldown,
				EnableRefreshThrottle:   b.config.RateLimit.EnableRefreshThrottle,
				MaxRefreshAttempts:      b.config.RateLimit.MaxRefreshAttempts,
				RefreshCooldown:         b.config.RateLimit.RefreshCooldown,
			})
		}
	} else {
		grace, err := cache.New[string, Identity](
			b.config.RememberMe.RotationGraceTTL,
			b.config.RememberMe.GracePurgeInterval,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		e.localGrace = grace
		e.rotation = localRotationCache{c: grace}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	if e.localGrace != nil {
		e.localGrace.Start(ctx)
	}
	e.slots.Start(ctx)

	return e, nil
}
