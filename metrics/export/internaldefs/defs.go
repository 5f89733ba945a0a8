package internaldefs

import goSession "github.com/MrEthical07/goSession"

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{goSession.MetricSeriesIssued, "gosession_series_issued_total", "Remember-me series created on interactive login."},
	{goSession.MetricAutoLoginSuccess, "gosession_auto_login_success_total", "Successful auto-logins, including grace-cache hits."},
	{goSession.MetricAutoLoginGraceHit, "gosession_auto_login_grace_hit_total", "Auto-logins served from the rotation-grace cache."},
	{goSession.MetricAutoLoginInvalidCookie, "gosession_auto_login_invalid_cookie_total", "Auto-login attempts with a malformed or unsigned cookie."},
	{goSession.MetricAutoLoginUnknownSeries, "gosession_auto_login_unknown_series_total", "Auto-login attempts referencing a missing series."},
	{goSession.MetricTokenTheftDetected, "gosession_token_theft_detected_total", "Series destroyed after a stale token value was presented."},
	{goSession.MetricTokenExpired, "gosession_token_expired_total", "Series destroyed after exceeding the validity window."},
	{goSession.MetricAutoLoginRateLimited, "gosession_auto_login_rate_limited_total", "Auto-login attempts rejected by the rate limiter."},
	{goSession.MetricLogout, "gosession_logout_total", "Series destroyed by explicit logout."},
	{goSession.MetricUpstreamLoginSuccess, "gosession_upstream_login_success_total", "Successful upstream password grants."},
	{goSession.MetricUpstreamLoginFailure, "gosession_upstream_login_failure_total", "Failed upstream password grants."},
	{goSession.MetricRefreshPerformed, "gosession_refresh_performed_total", "Upstream refresh grants actually performed."},
	{goSession.MetricRefreshCoalesced, "gosession_refresh_coalesced_total", "Refresh attempts served from an in-flight result."},
	{goSession.MetricRefreshFailure, "gosession_refresh_failure_total", "Failed upstream refresh grants."},
	{goSession.MetricRefreshRateLimited, "gosession_refresh_rate_limited_total", "Refresh attempts rejected by the rate limiter."},
	{goSession.MetricClaimParseFallback, "gosession_claim_parse_fallback_total", "Refresh lifetimes derived from the configured default after an unparsable exp claim."},
}
