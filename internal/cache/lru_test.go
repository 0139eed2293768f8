package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[string, string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string, string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestLRU(3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 is now least recently used
	c.Set("key4", "value4")

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(key); !found {
			t.Errorf("%s should still be cached", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", "1")

	clock.t = clock.t.Add(30 * time.Second)
	if v, found := c.Get("a"); !found || v != "1" {
		t.Fatalf("Get() = %q, %v; want cached value", v, found)
	}

	clock.t = clock.t.Add(time.Minute)
	if _, found := c.Get("a"); found {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed on Get")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestLRU_SetRefreshesValue(t *testing.T) {
	c, _ := newTestLRU(2, 0)
	c.Set("a", "1")
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("Get() = %q, want 2", v)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Fatal("deleted key still cached")
	}
}

func TestLRU_NilIsDisabled(t *testing.T) {
	c := NewLRU[string, int](0, time.Minute)
	if c != nil {
		t.Fatal("NewLRU with zero size should return nil")
	}
	c.Set("a", 1)
	if _, found := c.Get("a"); found {
		t.Fatal("disabled cache should never hit")
	}
	if c.Len() != 0 || c.CleanExpired() != 0 {
		t.Fatal("disabled cache should be empty")
	}
}

func TestJanitor_Sweep(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.t = clock.t.Add(2 * time.Minute)
	c.Set("c", "3")

	j := NewJanitor(time.Hour, nil, c)
	if n := j.Sweep(); n != 2 {
		t.Fatalf("Sweep() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	j := NewJanitor(time.Millisecond, nil, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
