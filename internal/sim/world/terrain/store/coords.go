package store

import "islecraft.ai/internal/sim/world/logic/mathx"

// WorldToChunk returns the chunk owning world cell (x, y). Negative
// coordinates floor, so (-1,-1) belongs to chunk (-1,-1).
func WorldToChunk(size, x, y int) (cx, cy int) {
	return mathx.FloorDiv(x, size), mathx.FloorDiv(y, size)
}

// LocalOffset returns the cell's offset inside its chunk, always in [0, size).
func LocalOffset(size, x, y int) (tx, ty int) {
	return mathx.Mod(x, size), mathx.Mod(y, size)
}

func ChunkToWorld(size, cx, cy, tx, ty int) (x, y int) {
	return cx*size + tx, cy*size + ty
}

func (s *ChunkStore) WorldToChunk(x, y int) (int, int) { return WorldToChunk(s.size, x, y) }
func (s *ChunkStore) LocalOffset(x, y int) (int, int)  { return LocalOffset(s.size, x, y) }
func (s *ChunkStore) ChunkToWorld(cx, cy, tx, ty int) (int, int) {
	return ChunkToWorld(s.size, cx, cy, tx, ty)
}
