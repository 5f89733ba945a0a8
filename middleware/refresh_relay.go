package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RefreshRelay returns middleware that renews an expiring access token
// before the wrapped handler runs. When the request carries a refresh
// cookie and the access token is missing or inside the refresh window, the
// engine performs (or joins) a coalesced refresh grant and the handler
// receives a request decorated with the fresh cookies.
//
// Refresh failures are not fatal here: the stale request proceeds and
// downstream identity extraction decides how to respond.
func RefreshRelay(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil && engine.ShouldRefresh(r) {
				if decorated, err := engine.Refresh(w, r); err == nil {
					r = decorated
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
