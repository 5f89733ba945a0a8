// Package goSession provides a persistent-session and credential-renewal
// subsystem: rotating remember-me tokens with theft detection, and an
// OAuth2-style refresh-token relay that coalesces concurrent renewals.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator contracts ([TokenStore], [UserStore]) and value types
// (AutoLoginResult, TokenPair, MetricsSnapshot). Internal coordination —
// rate limiting, the Redis rotation-cache encoding, random token material —
// lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Own the persistent token store or the user database. Both are external
//     collaborators reached through [TokenStore] and [UserStore]; the
//     store/gormstore package ships a reference implementation.
//   - Retry upstream identity-provider calls. Non-success responses are
//     surfaced verbatim as [UpstreamAuthError] so the caller can decide
//     whether to prompt for interactive login.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Concurrency contract
//
// Auto-login rotation is serialized per series, never engine-wide; refresh
// renewal contends only between requests carrying the same refresh-token
// value. Both caches are process-local by default; plug a Redis-backed
// rotation cache via [Builder.WithRedis] when running multiple instances.
package goSession
