package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidConfiguration is returned by [New] for a non-positive TTL.
var ErrInvalidConfiguration = errors.New("cache ttl must be positive")

type entry[K comparable, V any] struct {
	key      K
	value    V
	expireAt time.Time
}

// TimeBounded holds key/value pairs for a fixed TTL. Reads on expired but
// not-yet-purged entries behave as misses. All operations take a single
// coarse mutex; contention is expected to be low.
//
// Because the TTL is constant and a re-Put moves the entry to the back of
// the eviction order, insertion order equals expiry order and [Purge] stops
// at the first live entry.
type TimeBounded[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	every   time.Duration
	entries map[K]*list.Element
	order   *list.List

	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

// New creates a [TimeBounded] cache. A non-positive ttl fails with
// [ErrInvalidConfiguration]. A non-positive purgeInterval disables the
// background purge; Get and Put remain correct but unbounded growth is the
// caller's responsibility.
func New[K comparable, V any](ttl, purgeInterval time.Duration) (*TimeBounded[K, V], error) {
	if ttl <= 0 {
		return nil, ErrInvalidConfiguration
	}
	return &TimeBounded[K, V]{
		ttl:     ttl,
		every:   purgeInterval,
		entries: make(map[K]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}, nil
}

// Put inserts or replaces the value for key and resets its expiry to
// now + ttl. A replaced entry moves to the back of the eviction order.
func (c *TimeBounded[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expireAt := c.now().Add(c.ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expireAt = expireAt
		c.order.MoveToBack(el)
		return
	}
	c.entries[key] = c.order.PushBack(&entry[K, V]{key: key, value: value, expireAt: expireAt})
}

// Get returns the live value for key. Expired entries are reported absent
// regardless of whether the purge cycle has run.
func (c *TimeBounded[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if !c.now().Before(e.expireAt) {
		return zero, false
	}
	return e.value, true
}

// Purge removes every entry whose expiry has passed. It walks from the
// oldest entry and short-circuits at the first live one.
func (c *TimeBounded[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for el := c.order.Front(); el != nil; {
		e := el.Value.(*entry[K, V])
		if now.Before(e.expireAt) {
			return
		}
		next := el.Next()
		c.order.Remove(el)
		delete(c.entries, e.key)
		el = next
	}
}

// Len returns the current entry count, which may include expired entries
// the purge cycle has not removed yet.
func (c *TimeBounded[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Start launches the background purge goroutine. It is a no-op when the
// purge interval is non-positive or the cache is already running. The
// goroutine stops when ctx is cancelled or [Stop] is called.
func (c *TimeBounded[K, V]) Start(ctx context.Context) {
	if c.every <= 0 {
		return
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Purge()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the purge goroutine and waits for it to exit. Safe to call
// when Start never ran.
func (c *TimeBounded[K, V]) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
