package store

import (
	"fmt"
	"sync"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

// MemoryBackend keeps saved chunks in a map. It is used for ephemeral worlds
// and tests.
type MemoryBackend struct {
	mu     sync.Mutex
	chunks map[ChunkKey][]tile.Tile
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{chunks: map[ChunkKey][]tile.Tile{}}
}

func (m *MemoryBackend) LoadChunk(cx, cy, size int) ([]tile.Tile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved, ok := m.chunks[ChunkKey{CX: cx, CY: cy}]
	if !ok {
		return nil, false, nil
	}
	if len(saved) != size*size {
		return nil, false, fmt.Errorf("chunk (%d,%d): %d tiles, want %d", cx, cy, len(saved), size*size)
	}
	out := make([]tile.Tile, len(saved))
	copy(out, saved)
	return out, true, nil
}

func (m *MemoryBackend) SaveChunk(cx, cy int, tiles []tile.Tile) error {
	cp := make([]tile.Tile, len(tiles))
	copy(cp, tiles)
	m.mu.Lock()
	m.chunks[ChunkKey{CX: cx, CY: cy}] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) ClearAll() error {
	m.mu.Lock()
	clear(m.chunks)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}
