package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewRejectsNonPositiveTTL(t *testing.T) {
	if _, err := New[string, int](0, time.Second); err != ErrInvalidConfiguration {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := New[string, int](-time.Second, 0); err != ErrInvalidConfiguration {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestPutGet(t *testing.T) {
	c, err := New[string, int](time.Minute, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 3)

	if v, ok := c.Get("a"); !ok || v != 3 {
		t.Fatalf("Get(a) = %v, %v; want 3, true", v, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %v, %v; want 2, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) reported a hit")
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestLazyExpiryWithoutPurge(t *testing.T) {
	c, err := New[string, int](time.Minute, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }
	c.Put("a", 1)

	c.now = func() time.Time { return base.Add(time.Minute) }
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry still visible to Get")
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1 (expired entry not yet purged)", got)
	}
}

func TestPurgeRemovesOnlyExpired(t *testing.T) {
	c, err := New[string, int](time.Minute, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }
	c.Put("old", 1)

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	c.Put("fresh", 2)

	c.now = func() time.Time { return base.Add(time.Minute) }
	c.Purge()

	if got := c.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1 after purge", got)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("live entry removed by purge")
	}
	if _, ok := c.Get("old"); ok {
		t.Fatal("expired entry survived purge")
	}
}

func TestRePutMovesEntryToBack(t *testing.T) {
	c, err := New[string, int](time.Minute, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }
	c.Put("a", 1)

	c.now = func() time.Time { return base.Add(30 * time.Second) }
	c.Put("b", 2)
	c.Put("a", 3) // resets a's expiry, moves it behind b

	// b expires first now; a must survive the purge that evicts b.
	c.now = func() time.Time { return base.Add(90 * time.Second) }
	c.Purge()

	if _, ok := c.Get("b"); ok {
		t.Fatal("b survived purge past its expiry")
	}
	if v, ok := c.Get("a"); !ok || v != 3 {
		t.Fatalf("Get(a) = %v, %v; want 3, true after re-put", v, ok)
	}
}

func TestStartStopPurgeLoop(t *testing.T) {
	c, err := New[string, int](10*time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Start(context.Background())
	defer c.Stop()

	c.Put("a", 1)

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("background purge never evicted the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.Stop()
	c.Stop() // idempotent
}

func TestConcurrentAccess(t *testing.T) {
	c, err := New[int, int](50*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c.Start(context.Background())
	defer c.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Put(i%32, g)
				c.Get(i % 32)
			}
		}(g)
	}
	wg.Wait()
}
