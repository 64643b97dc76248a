package blockcache

import (
	"sync/atomic"

	"github.com/billie-coop/presage/internal/csync"
)

// Stats describes cache occupancy and effectiveness
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
	Clears  int64
}

// HitRate is hits over total lookups, 0 with no history
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache maps block IDs to rendered output. Entries are content
// addressed, so a changed block acquires a new ID and its old entry
// just becomes unreachable. Concurrent writers for the same ID write
// equivalent values; writers for different IDs don't interfere.
//
// When the entry count exceeds capacity the whole cache is dropped.
// Unreachable entries go with it and the next render refills the live
// set; tracking per-entry recency isn't worth it at this scale.
type Cache struct {
	entries  *csync.Map[string, string]
	capacity int

	hits   atomic.Int64
	misses atomic.Int64
	clears atomic.Int64
}

// DefaultCapacity bounds the cache when the caller doesn't
const DefaultCapacity = 1024

// NewCache creates a cache holding up to capacity rendered blocks
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  csync.NewMap[string, string](),
		capacity: capacity,
	}
}

// Get returns the rendered output for a block ID and counts the
// lookup as a hit or miss
func (c *Cache) Get(id string) (string, bool) {
	html, ok := c.entries.Get(id)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return html, ok
}

// Has checks for an entry without touching the hit/miss counters.
// The predictor uses this to skip already-warmed blocks.
func (c *Cache) Has(id string) bool {
	return c.entries.Has(id)
}

// Put stores rendered output, evicting everything if the cache
// overflows
func (c *Cache) Put(id, html string) {
	c.entries.Set(id, html)
	if c.entries.Len() > c.capacity {
		c.entries.Clear()
		c.clears.Add(1)
	}
}

// Clear drops all entries (e.g. on theme change, since rendered
// output embeds theme styling)
func (c *Cache) Clear() {
	c.entries.Clear()
	c.clears.Add(1)
}

// Stats returns a snapshot of cache counters
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Clears:  c.clears.Load(),
	}
}
