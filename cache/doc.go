// Package cache provides a generic time-bounded cache with a fixed per-entry
// TTL, lazy expiry on read, and an optional background purge goroutine with
// an explicit Start/Stop lifecycle.
package cache
