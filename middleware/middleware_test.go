package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/golang-jwt/jwt/v5"
)

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]goSession.PersistentLoginToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]goSession.PersistentLoginToken)}
}

func (s *fakeTokenStore) FindBySeries(_ context.Context, series string) (*goSession.PersistentLoginToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[series]
	if !ok {
		return nil, goSession.ErrSeriesNotFound
	}
	copied := token
	return &copied, nil
}

func (s *fakeTokenStore) Save(_ context.Context, token *goSession.PersistentLoginToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Series] = *token
	return nil
}

func (s *fakeTokenStore) Delete(_ context.Context, series string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, series)
	return nil
}

func newTestEngine(t *testing.T, mutate func(*goSession.Config)) *goSession.Engine {
	t.Helper()

	cfg := goSession.DefaultConfig()
	cfg.RememberMe.SecretKey = bytes.Repeat([]byte("k"), 32)
	cfg.RememberMe.GracePurgeInterval = 0
	cfg.Relay.CoalescePurgeInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goSession.New().WithConfig(cfg).WithTokenStore(newFakeTokenStore()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestRememberMeInstallsIdentity(t *testing.T) {
	engine := newTestEngine(t, nil)
	alice := goSession.Identity{UserID: "1", Login: "alice"}

	cookie, err := engine.OnLoginSuccess(context.Background(), alice, goSession.ClientContext{})
	if err != nil {
		t.Fatalf("OnLoginSuccess failed: %v", err)
	}

	var seen *goSession.Identity
	handler := RememberMe(engine)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.Login != "alice" {
		t.Fatalf("handler saw identity %+v, want alice", seen)
	}

	// The rotated cookie travels on the response.
	var rotated *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == engine.RememberCookieName() {
			rotated = c
		}
	}
	if rotated == nil || rotated.Value == cookie.Value {
		t.Fatal("response must carry a rotated remember-me cookie")
	}
}

func TestRememberMeWithoutCookie(t *testing.T) {
	engine := newTestEngine(t, nil)

	handler := RememberMe(engine)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Error("identity present without a cookie")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookies expected on a cookie-less request")
	}
}

func TestRememberMeClearsBadCookie(t *testing.T) {
	engine := newTestEngine(t, nil)

	handler := RememberMe(engine)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Error("identity present for a forged cookie")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: engine.RememberCookieName(), Value: "forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == engine.RememberCookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("forged cookie must be cleared on the response")
	}
}

func TestRememberMeSkipsAuthenticatedRequests(t *testing.T) {
	engine := newTestEngine(t, nil)
	bob := &goSession.Identity{UserID: "2", Login: "bob"}

	handler := RememberMe(engine)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		if identity != bob {
			t.Errorf("identity = %+v, want the pre-installed one", identity)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req = req.WithContext(WithIdentity(req.Context(), bob))
	req.AddCookie(&http.Cookie{Name: engine.RememberCookieName(), Value: "ignored"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRefreshRelayDecoratesRequest(t *testing.T) {
	newAccess, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}).SignedString([]byte("upstream-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": newAccess})
	}))
	t.Cleanup(upstream.Close)

	engine := newTestEngine(t, func(cfg *goSession.Config) {
		cfg.Relay.TokenEndpoint = upstream.URL
	})

	var seenAccess string
	handler := RefreshRelay(engine)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(engine.AccessCookieName()); err == nil {
			seenAccess = c.Value
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "https://app.example.com/api", nil)
	req.AddCookie(&http.Cookie{Name: engine.RefreshCookieName(), Value: "refresh-value"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenAccess != newAccess {
		t.Fatalf("handler saw access token %q, want the refreshed one", seenAccess)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("response must carry the refreshed cookies")
	}
}

func TestRefreshRelayPassesThroughWithoutRefreshCookie(t *testing.T) {
	engine := newTestEngine(t, func(cfg *goSession.Config) {
		cfg.Relay.TokenEndpoint = "https://idp.example.com/token"
	})

	var called bool
	handler := RefreshRelay(engine)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))
	if !called {
		t.Fatal("handler must run for requests with nothing to refresh")
	}
}

func TestClientContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:4312"
	r.Header.Set("User-Agent", "test-agent")

	client := ClientContext(r)
	if client.IP != "192.0.2.10" || client.UserAgent != "test-agent" {
		t.Fatalf("client = %+v", client)
	}

	// The first X-Forwarded-For hop wins over the socket address.
	r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if client := ClientContext(r); client.IP != "203.0.113.7" {
		t.Fatalf("forwarded IP = %q, want 203.0.113.7", client.IP)
	}
}
