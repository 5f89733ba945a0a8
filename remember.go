package goSession

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/rate"
)

// OnLoginSuccess starts a fresh remembered login chain after an interactive
// login: a new series and token value are persisted and returned as a
// signed remember-me cookie. Other series belonging to the same user are
// untouched.
func (e *Engine) OnLoginSuccess(ctx context.Context, identity Identity, client ClientContext) (*http.Cookie, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	series, err := internal.NewSeries()
	if err != nil {
		return nil, err
	}
	tokenValue, err := internal.NewTokenValue()
	if err != nil {
		return nil, err
	}

	token := &PersistentLoginToken{
		Series:     series,
		TokenValue: tokenValue,
		UserID:     identity.UserID,
		Login:      identity.Login,
		IssuedAt:   e.now(),
		IP:         client.IP,
		UserAgent:  client.UserAgent,
	}
	if err := e.tokenStore.Save(ctx, token); err != nil {
		return nil, err
	}

	e.metricInc(MetricSeriesIssued)
	event := newAuditEvent(AuditEventSeriesIssued)
	event.Login = identity.Login
	event.Series = series
	event.IP = client.IP
	event.UserAgent = client.UserAgent
	event.Success = true
	e.auditEmit(ctx, event)

	return e.rememberCookie(series, tokenValue), nil
}

// ProcessAutoLogin validates a presented remember-me cookie and, on
// success, rotates the token value and returns the refreshed cookie.
// Routine failures come back as statuses; only store, rate-limit, or
// configuration faults are errors.
//
// Rotation is serialized per series. The grace cache absorbs concurrent
// requests still carrying the just-superseded cookie, so simultaneous
// auto-logins from one browser do not trip theft detection.
func (e *Engine) ProcessAutoLogin(ctx context.Context, cookieValue string, client ClientContext) (AutoLoginResult, error) {
	if e == nil {
		return AutoLoginResult{}, ErrEngineNotReady
	}

	series, tokenValue, err := parseRememberValue(e.config.RememberMe.SecretKey, cookieValue, e.now())
	if err != nil {
		e.metricInc(MetricAutoLoginInvalidCookie)
		return AutoLoginResult{Status: AutoLoginInvalidCookie}, nil
	}

	if err := e.rateLimiter.CheckAutoLogin(ctx, series); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricAutoLoginRateLimited)
			return AutoLoginResult{}, ErrAutoLoginRateLimited
		}
		return AutoLoginResult{}, err
	}

	// Fast path: a rotation within the grace window already vouched for
	// this exact pair. No store round-trip, no second rotation.
	if identity, ok, err := e.rotation.Get(ctx, series, tokenValue); err == nil && ok {
		e.metricInc(MetricAutoLoginGraceHit)
		e.metricInc(MetricAutoLoginSuccess)
		return AutoLoginResult{Status: AutoLoginSuccess, Identity: &identity}, nil
	}

	unlock := e.locks.acquire(series)
	defer unlock()

	// Re-check under the lock: a concurrent call may have rotated while we
	// waited to acquire it.
	identity, ok, err := e.rotation.Get(ctx, series, tokenValue)
	if err != nil {
		return AutoLoginResult{}, err
	}
	if ok {
		e.metricInc(MetricAutoLoginGraceHit)
		e.metricInc(MetricAutoLoginSuccess)
		return AutoLoginResult{Status: AutoLoginSuccess, Identity: &identity}, nil
	}

	return e.rotateSeries(ctx, series, tokenValue, client)
}

func (e *Engine) rotateSeries(ctx context.Context, series, tokenValue string, client ClientContext) (AutoLoginResult, error) {
	token, err := e.tokenStore.FindBySeries(ctx, series)
	if err != nil {
		if errors.Is(err, ErrSeriesNotFound) {
			e.metricInc(MetricAutoLoginUnknownSeries)
			e.bumpFailureBudget(ctx, series)
			e.auditAutoLogin(ctx, "", series, client, false, "no such series")
			return AutoLoginResult{Status: AutoLoginNoSuchSeries}, nil
		}
		return AutoLoginResult{}, err
	}

	if subtle.ConstantTimeCompare([]byte(token.TokenValue), []byte(tokenValue)) != 1 {
		// Single-use token presented after rotation: indistinguishable from
		// a stolen cookie. The whole series is destroyed, not just this
		// request rejected.
		if err := e.tokenStore.Delete(ctx, series); err != nil && !errors.Is(err, ErrSeriesNotFound) {
			return AutoLoginResult{}, err
		}
		e.metricInc(MetricTokenTheftDetected)
		e.bumpFailureBudget(ctx, series)
		event := newAuditEvent(AuditEventTokenTheft)
		event.Login = token.Login
		event.Series = series
		event.IP = client.IP
		event.UserAgent = client.UserAgent
		event.Error = ErrTokenTheft.Error()
		e.auditEmit(ctx, event)
		return AutoLoginResult{Status: AutoLoginTheft}, nil
	}

	if e.now().After(token.IssuedAt.Add(e.config.RememberMe.TokenValidity)) {
		if err := e.tokenStore.Delete(ctx, series); err != nil && !errors.Is(err, ErrSeriesNotFound) {
			return AutoLoginResult{}, err
		}
		e.metricInc(MetricTokenExpired)
		e.auditAutoLogin(ctx, token.Login, series, client, false, "token expired")
		return AutoLoginResult{Status: AutoLoginExpired}, nil
	}

	identity := Identity{UserID: token.UserID, Login: token.Login}
	if e.userStore != nil {
		resolved, err := e.userStore.FindByLogin(ctx, token.Login)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				if err := e.tokenStore.Delete(ctx, series); err != nil && !errors.Is(err, ErrSeriesNotFound) {
					return AutoLoginResult{}, err
				}
				e.metricInc(MetricAutoLoginUnknownSeries)
				e.auditAutoLogin(ctx, token.Login, series, client, false, "user no longer exists")
				return AutoLoginResult{Status: AutoLoginNoSuchSeries}, nil
			}
			return AutoLoginResult{}, err
		}
		identity = *resolved
	}

	newValue, err := internal.NewTokenValue()
	if err != nil {
		return AutoLoginResult{}, err
	}
	rotated := *token
	rotated.TokenValue = newValue
	rotated.IssuedAt = e.now()
	rotated.IP = client.IP
	rotated.UserAgent = client.UserAgent
	if err := e.tokenStore.Save(ctx, &rotated); err != nil {
		return AutoLoginResult{}, err
	}

	// Grace registration is best-effort: losing it can misclassify a
	// concurrent legitimate request as theft, but never breaks this one.
	if err := e.rotation.Put(ctx, series, tokenValue, identity); err != nil {
		log.Print("goSession: rotation grace registration failed")
	}
	if err := e.rateLimiter.ResetAutoLogin(ctx, series); err != nil {
		log.Print("goSession: auto-login limiter reset failed")
	}

	e.metricInc(MetricAutoLoginSuccess)
	e.auditAutoLogin(ctx, identity.Login, series, client, true, "")

	return AutoLoginResult{
		Status:   AutoLoginSuccess,
		Identity: &identity,
		Cookie:   e.rememberCookie(series, newValue),
	}, nil
}

// Logout destroys the series referenced by the presented cookie. Other
// series of the same user (other browsers, other devices) stay valid.
func (e *Engine) Logout(ctx context.Context, cookieValue string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	series, _, err := parseRememberValue(e.config.RememberMe.SecretKey, cookieValue, e.now())
	if err != nil {
		return err
	}
	if err := e.tokenStore.Delete(ctx, series); err != nil && !errors.Is(err, ErrSeriesNotFound) {
		return err
	}

	e.metricInc(MetricLogout)
	event := newAuditEvent(AuditEventLogout)
	event.Series = series
	event.Success = true
	e.auditEmit(ctx, event)
	return nil
}

// ClearRememberCookie returns a cookie that deletes the remember-me cookie
// on the client.
func (e *Engine) ClearRememberCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.RememberMe.CookieName,
		Value:    "",
		Path:     e.config.Cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: e.config.Cookie.SameSite,
	}
}

func (e *Engine) rememberCookie(series, tokenValue string) *http.Cookie {
	cfg := e.config.RememberMe
	expiresAt := e.now().Add(cfg.TokenValidity)
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    signRememberValue(cfg.SecretKey, series, tokenValue, expiresAt),
		Path:     e.config.Cookie.Path,
		MaxAge:   int(cfg.TokenValidity / time.Second),
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: e.config.Cookie.SameSite,
	}
}

func (e *Engine) bumpFailureBudget(ctx context.Context, series string) {
	if err := e.rateLimiter.IncrementAutoLogin(ctx, series); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		log.Print("goSession: auto-login limiter increment failed")
	}
}

func (e *Engine) auditAutoLogin(ctx context.Context, login, series string, client ClientContext, success bool, reason string) {
	event := newAuditEvent(AuditEventAutoLogin)
	event.Login = login
	event.Series = series
	event.IP = client.IP
	event.UserAgent = client.UserAgent
	event.Success = success
	event.Error = reason
	e.auditEmit(ctx, event)
}

// seriesLocks hands out one mutex per live series so rotation is
// linearizable per series without serializing unrelated users.
type seriesLocks struct {
	mu    sync.Mutex
	locks map[string]*seriesLock
}

type seriesLock struct {
	mu   sync.Mutex
	refs int
}

func newSeriesLocks() *seriesLocks {
	return &seriesLocks{locks: make(map[string]*seriesLock)}
}

func (l *seriesLocks) acquire(series string) func() {
	l.mu.Lock()
	sl, ok := l.locks[series]
	if !ok {
		sl = &seriesLock{}
		l.locks[series] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, series)
		}
		l.mu.Unlock()
	}
}
