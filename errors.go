package goSession

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfiguration is an exported constant or variable used by the session engine.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidCookie is an exported constant or variable used by the session engine.
	ErrInvalidCookie = errors.New("invalid remember-me cookie")
	// ErrSeriesNotFound is an exported constant or variable used by the session engine.
	ErrSeriesNotFound = errors.New("persistent token series not found")
	// ErrTokenTheft is an exported constant or variable used by the session engine.
	ErrTokenTheft = errors.New("persistent token theft detected")
	// ErrTokenExpired is an exported constant or variable used by the session engine.
	ErrTokenExpired = errors.New("persistent token expired")
	// ErrUserNotFound is an exported constant or variable used by the session engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable is an exported constant or variable used by the session engine.
	ErrStoreUnavailable = errors.New("persistent store unavailable")
	// ErrUpstreamAuth is an exported constant or variable used by the session engine.
	ErrUpstreamAuth = errors.New("upstream authentication failure")
	// ErrNoRefreshCookie is an exported constant or variable used by the session engine.
	ErrNoRefreshCookie = errors.New("no refresh token cookie")
	// ErrAutoLoginRateLimited is an exported constant or variable used by the session engine.
	ErrAutoLoginRateLimited = errors.New("auto-login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the session engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
)
