package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/golang-jwt/jwt/v5"
)

// UpstreamAuthError carries a non-success upstream response verbatim. The
// status code and body are never masked so the caller can decide whether to
// prompt for interactive login.
type UpstreamAuthError struct {
	StatusCode int
	Body       []byte
}

// Error describes the error operation and its observable behavior.
func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("upstream authentication failure: status %d", e.StatusCode)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *UpstreamAuthError) Unwrap() error {
	return ErrUpstreamAuth
}

type upstreamTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// refreshSlot is the shared result of one upstream refresh-grant call.
// Requests bearing the same refresh-token value within the coalescing
// window contend on the slot's own mutex, never on a global lock.
type refreshSlot struct {
	mu            sync.Mutex
	done          bool
	accessCookie  *http.Cookie
	refreshCookie *http.Cookie
}

// Authenticate forwards a password grant to the upstream identity provider
// and derives the access/refresh cookie pair. The access cookie is
// session-scoped; the refresh cookie carries the token's remaining lifetime
// when rememberMe is set, else it is session-scoped too. Both cookies are
// scoped to the registrable domain of the request host.
func (e *Engine) Authenticate(ctx context.Context, login, password string, rememberMe bool, r *http.Request) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.config.Relay.TokenEndpoint == "" {
		return nil, fmt.Errorf("%w: relay token endpoint not configured", ErrInvalidConfiguration)
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {login},
		"password":   {password},
	}
	token, raw, err := e.upstreamGrant(ctx, form, e.config.Relay.ClientID, e.config.Relay.ClientSecret)
	if err != nil {
		e.metricInc(MetricUpstreamLoginFailure)
		event := newAuditEvent(AuditEventUpstreamLogin)
		event.Login = login
		event.Error = err.Error()
		e.auditEmit(ctx, event)
		return nil, err
	}

	pair := &TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Raw:          raw,
		AccessCookie: newTokenCookie(e.config.Relay.AccessCookieName, token.AccessToken, 0, r, e.config.Cookie),
	}
	if token.RefreshToken != "" {
		maxAge := 0
		if rememberMe {
			maxAge = int(e.refreshTokenRemaining(token.RefreshToken) / time.Second)
		}
		pair.RefreshCookie = newTokenCookie(e.config.Relay.RefreshCookieName, token.RefreshToken, maxAge, r, e.config.Cookie)
	}

	e.metricInc(MetricUpstreamLoginSuccess)
	event := newAuditEvent(AuditEventUpstreamLogin)
	event.Login = login
	event.Success = true
	e.auditEmit(ctx, event)
	return pair, nil
}

// Refresh exchanges the request's refresh-token cookie for a new token pair
// and returns a request clone whose Cookie header carries the fresh pair,
// so downstream identity extraction within the same request observes the
// renewed credentials.
//
// Concurrent calls with the same refresh-token value coalesce: exactly one
// upstream grant runs per value per coalescing window; the performer writes
// the new cookies to its response, every caller gets the decorated request.
func (e *Engine) Refresh(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	if e == nil {
		return r, ErrEngineNotReady
	}
	if e.config.Relay.TokenEndpoint == "" {
		return r, fmt.Errorf("%w: relay token endpoint not configured", ErrInvalidConfiguration)
	}

	cookie, err := r.Cookie(e.config.Relay.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return r, ErrNoRefreshCookie
	}
	refreshValue := cookie.Value
	ctx := r.Context()

	if err := e.rateLimiter.CheckRefresh(ctx, internal.HashTokenValue(refreshValue)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricRefreshRateLimited)
			return r, ErrRefreshRateLimited
		}
		return r, err
	}

	slot := e.refreshSlotFor(internal.HashTokenValue(refreshValue))
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if !slot.done {
		if err := e.performRefresh(ctx, slot, refreshValue, r); err != nil {
			return r, err
		}
		http.SetCookie(w, slot.accessCookie)
		http.SetCookie(w, slot.refreshCookie)
		e.metricInc(MetricRefreshPerformed)
	} else {
		e.metricInc(MetricRefreshCoalesced)
	}

	return replaceRequestCookies(r, slot.accessCookie, slot.refreshCookie), nil
}

func (e *Engine) performRefresh(ctx context.Context, slot *refreshSlot, refreshValue string, r *http.Request) error {
	// The grant authenticates as the client the token was issued to; a
	// token without a client_id claim falls back to the configured client.
	clientID := tokenClientID(refreshValue)
	clientSecret := ""
	if clientID == "" {
		clientID = e.config.Relay.ClientID
	}
	if clientID == e.config.Relay.ClientID {
		clientSecret = e.config.Relay.ClientSecret
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshValue},
	}
	token, _, err := e.upstreamGrant(ctx, form, clientID, clientSecret)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		event := newAuditEvent(AuditEventUpstreamRefresh)
		event.Error = err.Error()
		e.auditEmit(ctx, event)
		return err
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		// Upstream kept the refresh token; reuse the presented one.
		newRefresh = refreshValue
	}

	slot.accessCookie = newTokenCookie(e.config.Relay.AccessCookieName, token.AccessToken, 0, r, e.config.Cookie)
	slot.refreshCookie = newTokenCookie(
		e.config.Relay.RefreshCookieName,
		newRefresh,
		int(e.refreshTokenRemaining(newRefresh)/time.Second),
		r,
		e.config.Cookie,
	)
	slot.done = true

	event := newAuditEvent(AuditEventUpstreamRefresh)
	event.Success = true
	e.auditEmit(ctx, event)
	return nil
}

// ShouldRefresh reports whether the request carries a refresh-token cookie
// and its access token is missing or expires within the refresh window.
func (e *Engine) ShouldRefresh(r *http.Request) bool {
	if e == nil {
		return false
	}
	refresh, err := r.Cookie(e.config.Relay.RefreshCookieName)
	if err != nil || refresh.Value == "" {
		return false
	}
	access, err := r.Cookie(e.config.Relay.AccessCookieName)
	if err != nil || access.Value == "" {
		return true
	}
	expiry, err := tokenExpiry(access.Value)
	if err != nil {
		// Unreadable access token: renewing is the safe choice.
		return true
	}
	return e.now().Add(e.config.Relay.RefreshWindow).After(expiry)
}

func (e *Engine) refreshSlotFor(tokenHash string) *refreshSlot {
	e.slotMu.Lock()
	defer e.slotMu.Unlock()
	if slot, ok := e.slots.Get(tokenHash); ok {
		return slot
	}
	slot := &refreshSlot{}
	e.slots.Put(tokenHash, slot)
	return slot
}

func (e *Engine) upstreamGrant(ctx context.Context, form url.Values, clientID, clientSecret string) (*upstreamTokenResponse, []byte, error) {
	if e.config.Relay.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Relay.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Relay.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if clientID != "" {
		req.SetBasicAuth(clientID, clientSecret)
	}

	res, err := e.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, &UpstreamAuthError{StatusCode: res.StatusCode, Body: body}
	}

	var token upstreamTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, nil, fmt.Errorf("%w: undecodable token response: %v", ErrUpstreamAuth, err)
	}
	if token.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: token response without access token", ErrUpstreamAuth)
	}
	return &token, body, nil
}

// refreshTokenRemaining derives the refresh cookie lifetime from the
// token's exp claim. Claim extraction is best-effort: a malformed token
// falls back to the configured default validity, never failing the request.
func (e *Engine) refreshTokenRemaining(token string) time.Duration {
	expiry, err := tokenExpiry(token)
	if err != nil {
		e.metricInc(MetricClaimParseFallback)
		return e.config.Relay.DefaultRefreshValidity
	}
	remaining := expiry.Sub(e.now())
	if remaining <= 0 {
		e.metricInc(MetricClaimParseFallback)
		return e.config.Relay.DefaultRefreshValidity
	}
	return remaining
}

func tokenClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func tokenExpiry(token string) (time.Time, error) {
	claims, err := tokenClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, errors.New("token has no usable exp claim")
	}
	return expiry.Time, nil
}

func tokenClientID(token string) string {
	claims, err := tokenClaims(token)
	if err != nil {
		return ""
	}
	if clientID, ok := claims["client_id"].(string); ok {
		return clientID
	}
	return ""
}

// replaceRequestCookies clones the request, substituting the given cookies
// for any same-named ones, so downstream handlers observe the refreshed
// credentials without mutating the original request.
func replaceRequestCookies(r *http.Request, replacements ...*http.Cookie) *http.Request {
	clone := r.Clone(r.Context())
	clone.Header.Del("Cookie")

	replaced := make(map[string]bool, len(replacements))
	for _, c := range replacements {
		if c != nil {
			replaced[c.Name] = true
		}
	}
	for _, c := range r.Cookies() {
		if !replaced[c.Name] {
			clone.AddCookie(c)
		}
	}
	for _, c := range replacements {
		if c != nil {
			clone.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return clone
}
