package store

import (
	"sort"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
}

func (s *ChunkStore) ResidentKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func (s *ChunkStore) DirtyKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func (s *ChunkStore) IsResident(cx, cy int) bool {
	_, ok := s.chunks[ChunkKey{CX: cx, CY: cy}]
	return ok
}

func (s *ChunkStore) IsDirty(cx, cy int) bool {
	_, ok := s.dirty[ChunkKey{CX: cx, CY: cy}]
	return ok
}

func (s *ChunkStore) GetTile(x, y int) tile.Tile {
	if t, ok := s.cache.Get(x, y); ok {
		return t
	}
	cx, cy := s.WorldToChunk(x, y)
	tx, ty := s.LocalOffset(x, y)
	t := s.resolve(cx, cy).Get(tx, ty)
	s.cache.Put(x, y, t)
	return t
}

// SetTile writes a cell. The owning chunk is marked dirty even when the value
// does not change.
func (s *ChunkStore) SetTile(x, y int, t tile.Tile) {
	cx, cy := s.WorldToChunk(x, y)
	tx, ty := s.LocalOffset(x, y)
	ch := s.resolve(cx, cy)

	old := ch.Set(tx, ty, t)
	if old != t {
		if old.IsTracked() && s.counts[old] > 0 {
			s.counts[old]--
		}
		if t.IsTracked() {
			s.counts[t]++
		}
	}
	s.cache.Put(x, y, t)
	s.dirty[ChunkKey{CX: cx, CY: cy}] = struct{}{}
}

// ReadRect returns the w*h cells starting at (x0, y0), row-major.
func (s *ChunkStore) ReadRect(x0, y0, w, h int) []tile.Tile {
	if w <= 0 || h <= 0 {
		return nil
	}
	out := make([]tile.Tile, 0, w*h)
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			out = append(out, s.GetTile(x, y))
		}
	}
	return out
}

// TileCounts returns the tracked kinds placed through SetTile since the store
// was created or reset, net of removals.
func (s *ChunkStore) TileCounts() map[tile.Tile]int {
	out := make(map[tile.Tile]int, len(tile.Tracked))
	for _, k := range tile.Tracked {
		out[k] = s.counts[k]
	}
	return out
}

// ChunkCounts returns the tracked kind counts of a resident chunk.
func (s *ChunkStore) ChunkCounts(cx, cy int) (map[tile.Tile]int, bool) {
	ch, ok := s.chunks[ChunkKey{CX: cx, CY: cy}]
	if !ok {
		return nil, false
	}
	return ch.Counts(), true
}

// Chunk returns a copy of a resident chunk's tiles.
func (s *ChunkStore) Chunk(cx, cy int) ([]tile.Tile, bool) {
	ch, ok := s.chunks[ChunkKey{CX: cx, CY: cy}]
	if !ok {
		return nil, false
	}
	out := make([]tile.Tile, len(ch.Tiles))
	copy(out, ch.Tiles)
	return out, true
}

func (s *ChunkStore) Stats() Stats {
	return Stats{
		ChunkSize:  s.size,
		Resident:   len(s.chunks),
		Dirty:      len(s.dirty),
		Generated:  s.generated,
		Loaded:     s.loaded,
		Saved:      s.saved,
		Evicted:    s.evicted,
		LoadErrors: s.loadErrors,
		SaveErrors: s.saveErrors,
		Cache:      s.cache.Stats(),
	}
}
