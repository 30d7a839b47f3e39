package store

import (
	"math/rand/v2"

	"islecraft.ai/internal/sim/world/logic/mathx"
	"islecraft.ai/internal/sim/world/terrain/gen"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

const chunkSeedSalt = 0x9e3779b97f4a7c15

func (s *ChunkStore) chunkRNG(cx, cy int) *rand.Rand {
	if s.seed == 0 {
		return s.rng
	}
	return rand.New(rand.NewPCG(mathx.Hash2(s.seed, cx, cy), chunkSeedSalt))
}

func (s *ChunkStore) generateWith(g gen.Generator, cx, cy int) *Chunk {
	tiles := g.Generate(cx, cy, s.size, s.chunkRNG(cx, cy))
	if len(tiles) != s.size*s.size {
		s.logger.Printf("generator %s: chunk (%d,%d) has %d tiles, want %d; padding with water",
			g.Name(), cx, cy, len(tiles), s.size*s.size)
		fixed := make([]tile.Tile, s.size*s.size)
		copy(fixed, tiles)
		tiles = fixed
	}
	for i, t := range tiles {
		if !t.Valid() {
			tiles[i] = tile.Water
		}
	}
	s.generated++
	s.emit(EventGenerate, ChunkKey{CX: cx, CY: cy}, nil)
	return NewChunk(cx, cy, s.size, tiles)
}

// GenerateChunk builds fresh content for a chunk with the generator the
// registry selects for it. The store is not modified.
func (s *ChunkStore) GenerateChunk(cx, cy int) *Chunk {
	return s.generateWith(s.gens.Select(cx, cy), cx, cy)
}
