// Package gen holds chunk generation strategies and the flood-growth
// primitives they share.
package gen

import (
	"math/rand/v2"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

// Generator fills a fresh chunk. Implementations must only depend on the chunk
// coordinate and rng so any chunk can be regenerated on its own.
type Generator interface {
	Name() string
	Generate(cx, cy, size int, rng *rand.Rand) []tile.Tile
}

type Point struct {
	X, Y int
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

// randBetween returns a uniform value in [lo, hi].
func randBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

var dirs4 = [4]Point{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

var dirs8 = [8]Point{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}
