// Package stores holds Redis-backed storage for the rotation-grace cache:
// superseded remember-me token pairs mapped to the identity they
// authenticated, shared across engine instances.
package stores
