package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity installed by [RememberMe].
func IdentityFromContext(ctx context.Context) (*goSession.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*goSession.Identity)
	return identity, ok
}

// WithIdentity installs an identity into the context. Exposed so interactive
// login handlers can share the same accessor as auto-login.
func WithIdentity(ctx context.Context, identity *goSession.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// RememberMe returns middleware that resolves the remember-me cookie before
// the wrapped handler runs. On success the identity lands in the request
// context and a rotated cookie is set. On any routine failure the cookie is
// cleared and the request continues unauthenticated; store outages also
// fall through rather than failing the request.
func RememberMe(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := IdentityFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			cookie, err := r.Cookie(engine.RememberCookieName())
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := engine.ProcessAutoLogin(r.Context(), cookie.Value, ClientContext(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if result.Status == goSession.AutoLoginSuccess {
				if result.Cookie != nil {
					http.SetCookie(w, result.Cookie)
				}
				r = r.WithContext(WithIdentity(r.Context(), result.Identity))
			} else {
				http.SetCookie(w, engine.ClearRememberCookie())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientContext extracts the audit fingerprint from a request: the first
// X-Forwarded-For hop or the remote address, plus the user agent.
func ClientContext(r *http.Request) goSession.ClientContext {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		ip = strings.TrimSpace(first)
	}
	return goSession.ClientContext{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
