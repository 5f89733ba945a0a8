package goSession

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples request paths from sink latency: Emit hands the
// event to a buffered channel and a single goroutine feeds the sink.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	stop       chan struct{}
	dropIfFull bool

	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		stop:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain flushes events buffered before Close so shutdown never loses them.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit enqueues an event for asynchronous delivery. Safe for concurrent
// use. With DropIfFull set, a full buffer counts a drop instead of
// blocking the request path; otherwise Emit blocks until there is room or
// ctx is cancelled.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops the dispatcher after flushing buffered events. Idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded due to backpressure.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
