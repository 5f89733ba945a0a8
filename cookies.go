package goSession

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const cookieDelimiter = ":"

// signRememberValue wraps series:tokenValue in the signed-cookie envelope:
// base64url(series:token:expiryUnix) + "." + base64url(HMAC-SHA256).
func signRememberValue(secret []byte, series, tokenValue string, expiresAt time.Time) string {
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(series + cookieDelimiter + tokenValue + cookieDelimiter + strconv.FormatInt(expiresAt.Unix(), 10)),
	)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payload + "." + sig
}

// parseRememberValue verifies the envelope and splits it back into series
// and token value. Any malformation, signature mismatch, or passed embedded
// expiry fails with [ErrInvalidCookie].
func parseRememberValue(secret []byte, value string, now time.Time) (string, string, error) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", "", ErrInvalidCookie
	}

	wantSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", "", ErrInvalidCookie
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	if !hmac.Equal(mac.Sum(nil), wantSig) {
		return "", "", ErrInvalidCookie
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", "", ErrInvalidCookie
	}
	parts := strings.Split(string(raw), cookieDelimiter)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidCookie
	}
	expiry, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", ErrInvalidCookie
	}
	if now.Unix() >= expiry {
		return "", "", fmt.Errorf("%w: signed envelope expired", ErrInvalidCookie)
	}
	return parts[0], parts[1], nil
}

// registrableDomain computes the domain cookies are scoped to: the public
// suffix plus one label of the request host, after stripping any port and a
// leading "www.". An unresolvable host (localhost, raw IPs) returns "" and
// the Domain attribute is omitted.
func registrableDomain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// newTokenCookie builds an access/refresh cookie scoped to the registrable
// domain of the request host. maxAge 0 yields a session-scoped cookie.
func newTokenCookie(name, value string, maxAge int, r *http.Request, cfg CookieConfig) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	}
	if r != nil {
		c.Secure = isSecureRequest(r)
		if !cfg.DisableDomainScoping {
			c.Domain = registrableDomain(r.Host)
		}
	}
	return c
}
