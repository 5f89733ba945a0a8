package goSession

import "sync/atomic"

// MetricID defines a public type used by goSession APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricSeriesIssued is an exported constant or variable used by the session engine.
	MetricSeriesIssued MetricID = iota
	// MetricAutoLoginSuccess is an exported constant or variable used by the session engine.
	MetricAutoLoginSuccess
	// MetricAutoLoginGraceHit is an exported constant or variable used by the session engine.
	MetricAutoLoginGraceHit
	// MetricAutoLoginInvalidCookie is an exported constant or variable used by the session engine.
	MetricAutoLoginInvalidCookie
	// MetricAutoLoginUnknownSeries is an exported constant or variable used by the session engine.
	MetricAutoLoginUnknownSeries
	// MetricTokenTheftDetected is an exported constant or variable used by the session engine.
	MetricTokenTheftDetected
	// MetricTokenExpired is an exported constant or variable used by the session engine.
	MetricTokenExpired
	// MetricAutoLoginRateLimited is an exported constant or variable used by the session engine.
	MetricAutoLoginRateLimited
	// MetricLogout is an exported constant or variable used by the session engine.
	MetricLogout
	// MetricUpstreamLoginSuccess is an exported constant or variable used by the session engine.
	MetricUpstreamLoginSuccess
	// MetricUpstreamLoginFailure is an exported constant or variable used by the session engine.
	MetricUpstreamLoginFailure
	// MetricRefreshPerformed is an exported constant or variable used by the session engine.
	MetricRefreshPerformed
	// MetricRefreshCoalesced is an exported constant or variable used by the session engine.
	MetricRefreshCoalesced
	// MetricRefreshFailure is an exported constant or variable used by the session engine.
	MetricRefreshFailure
	// MetricRefreshRateLimited is an exported constant or variable used by the session engine.
	MetricRefreshRateLimited
	// MetricClaimParseFallback is an exported constant or variable used by the session engine.
	MetricClaimParseFallback

	metricIDCount
)

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	value uint64
	_     [56]byte
}

// Metrics defines a public type used by goSession APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by goSession APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc can be used concurrently; counters are plain atomics.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot returns a point-in-time copy; concurrent increments after the
// copy are not reflected.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
