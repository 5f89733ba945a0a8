package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	seriesSize     = 16
	tokenValueSize = 16
)

// NewSeries returns a fresh random series identifier, base64url without
// padding.
func NewSeries() (string, error) {
	var raw [seriesSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewTokenValue returns a fresh single-use token secret, base64url without
// padding.
func NewTokenValue() (string, error) {
	var raw [tokenValueSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashTokenValue derives a stable, non-reversible cache/rate key from a
// token value so raw secrets never reach Redis keyspaces or map keys that
// outlive the request.
func HashTokenValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
