package cache

import (
	"testing"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

func TestTileCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put(0, 0, tile.Land)
	c.Put(1, 0, tile.Tree)
	c.Put(2, 0, tile.Wall)

	if _, ok := c.Get(0, 0); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	if got, ok := c.Get(2, 0); !ok || got != tile.Wall {
		t.Fatalf("newest entry: got %s ok=%v", got, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len=%d want 2", c.Len())
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Fatalf("evictions=%d want 1", s.Evictions)
	}
}

func TestTileCache_GetRefreshesRecency(t *testing.T) {
	c := New(2)
	c.Put(0, 0, tile.Land)
	c.Put(1, 0, tile.Tree)
	c.Get(0, 0)
	c.Put(2, 0, tile.Wall)

	if _, ok := c.Peek(0, 0); !ok {
		t.Fatalf("recently read entry was evicted")
	}
	if _, ok := c.Peek(1, 0); ok {
		t.Fatalf("stale entry survived")
	}
}

func TestTileCache_PutOverwrites(t *testing.T) {
	c := New(4)
	c.Put(-3, 7, tile.Land)
	c.Put(-3, 7, tile.Wood)
	if got, _ := c.Get(-3, 7); got != tile.Wood {
		t.Fatalf("got %s want WOOD", got)
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d want 1", c.Len())
	}
}

func TestTileCache_RemoveRectAndPurge(t *testing.T) {
	c := New(100)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c.Put(x, y, tile.Land)
		}
	}
	if n := c.RemoveRect(0, 0, 2, 2); n != 4 {
		t.Fatalf("removed=%d want 4", n)
	}
	if _, ok := c.Peek(1, 1); ok {
		t.Fatalf("(1,1) should be gone")
	}
	if _, ok := c.Peek(2, 2); !ok {
		t.Fatalf("(2,2) should remain")
	}

	c.Purge()
	s := c.Stats()
	if s.Len != 0 || s.Evictions != 0 {
		t.Fatalf("after purge: %+v", s)
	}
}

func TestTileCache_HitMissCounters(t *testing.T) {
	c := New(0)
	if c.Capacity() != DefaultCapacity {
		t.Fatalf("capacity=%d want %d", c.Capacity(), DefaultCapacity)
	}
	c.Get(5, 5)
	c.Put(5, 5, tile.Fish)
	c.Get(5, 5)
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("hits=%d misses=%d", s.Hits, s.Misses)
	}
}
