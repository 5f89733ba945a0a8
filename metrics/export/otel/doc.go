// Package otel bridges goSession engine counters to OpenTelemetry
// observable instruments registered on a caller-supplied meter.
package otel
