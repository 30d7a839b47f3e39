// Package cache is a bounded tile lookup cache keyed by world coordinate.
//
// Eviction is strict least-recently-used: Get and Put both refresh an entry,
// and inserting past capacity drops the entry touched longest ago. The cache is
// not safe for concurrent use; it belongs to a single chunk store.
package cache

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

const DefaultCapacity = 10000

type Key struct {
	X, Y int
}

type Stats struct {
	Len       int    `json:"len"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

type TileCache struct {
	lru      *simplelru.LRU[Key, tile.Tile]
	capacity int

	hits      uint64
	misses    uint64
	evictions uint64
}

// New returns a cache holding at most capacity tiles (DefaultCapacity if <= 0).
func New(capacity int) *TileCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &TileCache{capacity: capacity}
	// Only fails for a non-positive size.
	c.lru, _ = simplelru.NewLRU[Key, tile.Tile](capacity, func(Key, tile.Tile) {
		c.evictions++
	})
	return c
}

func (c *TileCache) Get(x, y int) (tile.Tile, bool) {
	t, ok := c.lru.Get(Key{X: x, Y: y})
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return t, ok
}

// Peek reads an entry without refreshing it or touching the hit counters.
func (c *TileCache) Peek(x, y int) (tile.Tile, bool) {
	return c.lru.Peek(Key{X: x, Y: y})
}

func (c *TileCache) Put(x, y int, t tile.Tile) {
	c.lru.Add(Key{X: x, Y: y}, t)
}

// RemoveRect drops every entry with x0 <= x < x0+w and y0 <= y < y0+h.
func (c *TileCache) RemoveRect(x0, y0, w, h int) int {
	n := 0
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			if c.lru.Remove(Key{X: x, Y: y}) {
				n++
			}
		}
	}
	return n
}

func (c *TileCache) Len() int      { return c.lru.Len() }
func (c *TileCache) Capacity() int { return c.capacity }

// Purge empties the cache. Counters are kept.
func (c *TileCache) Purge() {
	// simplelru invokes the eviction callback on purge; those are not
	// capacity evictions.
	before := c.evictions
	c.lru.Purge()
	c.evictions = before
}

func (c *TileCache) Stats() Stats {
	return Stats{
		Len:       c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
