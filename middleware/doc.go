// Package middleware provides net/http middleware that resolves remember-me
// cookies and relays refresh grants before normal request handling, and a
// context accessor for the resolved identity.
//
// The middleware never blocks a request on auth failure: a bad or stolen
// cookie is cleared and the request falls through to interactive login.
package middleware
