package goSession

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/internal/rate"
)

// Engine defines a public type used by goSession APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	tokenStore TokenStore
	userStore  UserStore

	rotation   RotationCache
	localGrace *cache.TimeBounded[string, Identity]
	locks      *seriesLocks

	slots  *cache.TimeBounded[string, *refreshSlot]
	slotMu sync.Mutex

	rateLimiter *rate.Limiter
	metrics     *Metrics
	audit       *auditDispatcher
	httpClient  *http.Client

	cancel context.CancelFunc

	now func() time.Time
}

// Close stops the background purge goroutines and drains the audit
// dispatcher. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.localGrace != nil {
		e.localGrace.Stop()
	}
	if e.slots != nil {
		e.slots.Stop()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// RememberCookieName returns the configured remember-me cookie name.
func (e *Engine) RememberCookieName() string {
	return e.config.RememberMe.CookieName
}

// AccessCookieName returns the configured access-token cookie name.
func (e *Engine) AccessCookieName() string {
	return e.config.Relay.AccessCookieName
}

// RefreshCookieName returns the configured refresh-token cookie name.
func (e *Engine) RefreshCookieName() string {
	return e.config.Relay.RefreshCookieName
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) auditEmit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, event)
}
