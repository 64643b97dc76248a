package blockcache

import (
	"fmt"
	"testing"
)

func TestCache_GetPutStats(t *testing.T) {
	c := NewCache(10)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache = true; want false")
	}

	c.Put("id1", "<h1>out</h1>")
	if got, ok := c.Get("id1"); !ok || got != "<h1>out</h1>" {
		t.Errorf("Get(id1) = %q, %v; want stored value, true", got, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v; want 1 hit, 1 miss, 1 entry", stats)
	}
	if got := stats.HitRate(); got != 0.5 {
		t.Errorf("HitRate() = %v; want 0.5", got)
	}
}

func TestCache_HasDoesNotTouchCounters(t *testing.T) {
	c := NewCache(10)
	c.Put("id", "out")

	c.Has("id")
	c.Has("other")

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Has() moved the hit/miss counters: %+v", stats)
	}
}

func TestCache_EvictsOnOverflow(t *testing.T) {
	c := NewCache(3)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("id%d", i), "out")
	}

	stats := c.Stats()
	if stats.Entries != 0 {
		t.Errorf("Entries after overflow = %d; want 0 (full clear)", stats.Entries)
	}
	if stats.Clears != 1 {
		t.Errorf("Clears = %d; want 1", stats.Clears)
	}
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(10)
	c.Put("id", "out")

	c.Clear()
	if c.Has("id") {
		t.Error("entry survived Clear")
	}
}
