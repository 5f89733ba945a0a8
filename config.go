package goSession

import (
	"fmt"
	"net/http"
	"time"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	RememberMe RememberMeConfig
	Relay      RelayConfig
	Cookie     CookieConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
REMEMBER-ME CONFIG
====================================
*/

// RememberMeConfig defines a public type used by goSession APIs.
//
// RememberMeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RememberMeConfig struct {
	// CookieName is the remember-me cookie name.
	CookieName string
	// SecretKey signs the cookie payload (HMAC-SHA256). Required, at least
	// 32 bytes.
	SecretKey []byte
	// TokenValidity bounds how long a series stays usable after its last
	// rotation.
	TokenValidity time.Duration
	// RotationGraceTTL is the window during which a just-superseded token
	// value is still accepted, absorbing concurrent auto-login races.
	RotationGraceTTL time.Duration
	// GracePurgeInterval drives the background eviction of the local
	// rotation cache. Zero disables the purge goroutine.
	GracePurgeInterval time.Duration
}

/*
====================================
RELAY CONFIG
====================================
*/

// RelayConfig defines a public type used by goSession APIs.
//
// RelayConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RelayConfig struct {
	// TokenEndpoint is the upstream identity provider's token URL.
	// Leaving it empty disables the relay; remember-me still works.
	TokenEndpoint string
	// ClientID and ClientSecret authenticate the relay against the
	// upstream provider via HTTP Basic. ClientID doubles as the fallback
	// when a refresh token carries no client_id claim.
	ClientID     string
	ClientSecret string
	// AccessCookieName and RefreshCookieName are the fixed cookie names
	// holding the upstream token pair.
	AccessCookieName  string
	RefreshCookieName string
	// DefaultRefreshValidity is used for the refresh cookie MaxAge when the
	// token's exp claim cannot be parsed.
	DefaultRefreshValidity time.Duration
	// CoalesceTTL is the window during which concurrent refresh attempts
	// bearing the same refresh-token value share one upstream call.
	CoalesceTTL time.Duration
	// CoalescePurgeInterval drives background eviction of the coalescing
	// cache. Zero disables the purge goroutine.
	CoalescePurgeInterval time.Duration
	// RefreshWindow triggers a refresh when the access token expires within
	// this duration.
	RefreshWindow time.Duration
	// RequestTimeout bounds a single upstream grant call.
	RequestTimeout time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines a public type used by goSession APIs.
//
// CookieConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieConfig struct {
	Path     string
	SameSite http.SameSite
	// DisableDomainScoping suppresses the registrable-domain cookie
	// attribute, scoping cookies to the exact request host.
	DisableDomainScoping bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by goSession APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	EnableAutoLoginThrottle bool
	MaxAutoLoginFailures    int
	AutoLoginCooldown       time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldown         time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by goSession APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration. Callers must still set
// RememberMe.SecretKey and, when the relay is used, Relay.TokenEndpoint.
func DefaultConfig() Config {
	return Config{
		RememberMe: RememberMeConfig{
			CookieName:         "remember_me",
			TokenValidity:      31 * 24 * time.Hour,
			RotationGraceTTL:   5 * time.Second,
			GracePurgeInterval: time.Minute,
		},
		Relay: RelayConfig{
			ClientID:               "web_app",
			AccessCookieName:       "access_token",
			RefreshCookieName:      "refresh_token",
			DefaultRefreshValidity: 7 * 24 * time.Hour,
			CoalesceTTL:            10 * time.Second,
			CoalescePurgeInterval:  time.Minute,
			RefreshWindow:          30 * time.Second,
			RequestTimeout:         10 * time.Second,
		},
		Cookie: CookieConfig{
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
		RateLimit: RateLimitConfig{
			MaxAutoLoginFailures: 10,
			AutoLoginCooldown:    15 * time.Minute,
			MaxRefreshAttempts:   30,
			RefreshCooldown:      time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.RememberMe.SecretKey) < 32 {
		return fmt.Errorf("%w: remember-me secret key must be at least 32 bytes", ErrInvalidConfiguration)
	}
	if cfg.RememberMe.CookieName == "" {
		return fmt.Errorf("%w: remember-me cookie name required", ErrInvalidConfiguration)
	}
	if cfg.RememberMe.TokenValidity <= 0 {
		return fmt.Errorf("%w: remember-me token validity must be positive", ErrInvalidConfiguration)
	}
	if cfg.RememberMe.RotationGraceTTL <= 0 {
		return fmt.Errorf("%w: rotation grace TTL must be positive", ErrInvalidConfiguration)
	}
	if cfg.Relay.CoalesceTTL <= 0 {
		return fmt.Errorf("%w: refresh coalesce TTL must be positive", ErrInvalidConfiguration)
	}
	if cfg.Relay.DefaultRefreshValidity <= 0 {
		return fmt.Errorf("%w: default refresh validity must be positive", ErrInvalidConfiguration)
	}
	if cfg.Relay.AccessCookieName == "" || cfg.Relay.RefreshCookieName == "" {
		return fmt.Errorf("%w: relay cookie names required", ErrInvalidConfiguration)
	}
	if cfg.Relay.TokenEndpoint != "" && cfg.Relay.ClientID == "" {
		return fmt.Errorf("%w: relay client id required", ErrInvalidConfiguration)
	}
	if cfg.RateLimit.EnableAutoLoginThrottle && cfg.RateLimit.MaxAutoLoginFailures <= 0 {
		return fmt.Errorf("%w: auto-login failure budget must be positive", ErrInvalidConfiguration)
	}
	if cfg.RateLimit.EnableRefreshThrottle && cfg.RateLimit.MaxRefreshAttempts <= 0 {
		return fmt.Errorf("%w: refresh attempt budget must be positive", ErrInvalidConfiguration)
	}
	return nil
}
