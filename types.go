package goSession

import (
	"context"
	"net/http"
	"time"
)

// Identity is the authenticated principal resolved by auto-login or a
// [UserStore] lookup.
type Identity struct {
	UserID string
	Login  string
}

// ClientContext captures the requesting client's fingerprint at rotation
// time. It is recorded for audit only and never enforced.
type ClientContext struct {
	IP        string
	UserAgent string
}

// PersistentLoginToken is one link of a remembered login chain. Series is
// the stable primary key; TokenValue is single-use and replaced on every
// successful auto-login.
//
// At most one live TokenValue is valid for a series at any time. A series
// presented with a stale TokenValue is treated as compromised and destroyed
// as a whole.
type PersistentLoginToken struct {
	Series     string
	TokenValue string
	UserID     string
	Login      string
	IssuedAt   time.Time
	IP         string
	UserAgent  string
}

// TokenStore is the persistent-store contract for remember-me tokens. The
// store is the single source of truth for series state and must apply
// create/update/delete-by-series atomically.
//
// FindBySeries returns [ErrSeriesNotFound] (possibly wrapped) when the
// series does not exist. Backend failures should wrap
// [ErrStoreUnavailable].
type TokenStore interface {
	FindBySeries(ctx context.Context, series string) (*PersistentLoginToken, error)
	Save(ctx context.Context, token *PersistentLoginToken) error
	Delete(ctx context.Context, series string) error
}

// UserStore resolves login names to identities. FindByLogin returns
// [ErrUserNotFound] (possibly wrapped) for unknown logins.
type UserStore interface {
	FindByLogin(ctx context.Context, login string) (*Identity, error)
}

// RotationCache absorbs the race window after a rotation: the superseded
// (series, tokenValue) pair maps to the identity it authenticated for a
// short TTL, so concurrent requests still carrying the old cookie succeed
// instead of tripping theft detection.
//
// The default implementation is process-local. [Builder.WithRedis] installs
// a Redis-backed cache shared across instances.
type RotationCache interface {
	Put(ctx context.Context, series, tokenValue string, identity Identity) error
	Get(ctx context.Context, series, tokenValue string) (Identity, bool, error)
}

// AutoLoginStatus classifies the outcome of [Engine.ProcessAutoLogin].
type AutoLoginStatus uint8

const (
	// AutoLoginSuccess is an exported constant or variable used by the session engine.
	AutoLoginSuccess AutoLoginStatus = iota
	// AutoLoginInvalidCookie is an exported constant or variable used by the session engine.
	AutoLoginInvalidCookie
	// AutoLoginNoSuchSeries is an exported constant or variable used by the session engine.
	AutoLoginNoSuchSeries
	// AutoLoginTheft is an exported constant or variable used by the session engine.
	AutoLoginTheft
	// AutoLoginExpired is an exported constant or variable used by the session engine.
	AutoLoginExpired
)

// String describes the string operation and its observable behavior.
func (s AutoLoginStatus) String() string {
	switch s {
	case AutoLoginSuccess:
		return "success"
	case AutoLoginInvalidCookie:
		return "invalid_cookie"
	case AutoLoginNoSuchSeries:
		return "no_such_series"
	case AutoLoginTheft:
		return "theft"
	case AutoLoginExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AutoLoginResult is the tagged outcome of [Engine.ProcessAutoLogin].
// Routine failures (bad cookie, unknown series, theft, expiry) are statuses,
// not errors; only store or configuration faults surface as errors.
//
// Cookie carries the rotated remember-me cookie on a fresh rotation and is
// nil when the result was served from the rotation cache (the client's
// cookie is still current in that case).
type AutoLoginResult struct {
	Status   AutoLoginStatus
	Identity *Identity
	Cookie   *http.Cookie
}

// TokenPair is returned by [Engine.Authenticate]. Raw holds the upstream
// response body unchanged so callers can relay it to the client.
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessCookie  *http.Cookie
	RefreshCookie *http.Cookie
	Raw           []byte
}
