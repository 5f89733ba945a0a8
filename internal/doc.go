// Package internal holds unexported coordination helpers for goSession:
// random token material and hashing. Redis-backed pieces live in the
// internal/stores and internal/rate sub-packages.
package internal
