package gen

import (
	"math/rand/v2"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

// IslandParams tunes land-mass growth and feature overlay. Chances are permille
// and cumulative in the order tree, loot, boulder.
type IslandParams struct {
	LandPermille    int
	MinMass         int
	MaxMass         int
	TreePermille    int
	LootPermille    int
	BoulderPermille int
}

func (p IslandParams) normalized() IslandParams {
	p.LandPermille = ClampPermille(p.LandPermille)
	p.TreePermille = ClampPermille(p.TreePermille)
	p.LootPermille = ClampPermille(p.LootPermille)
	p.BoulderPermille = ClampPermille(p.BoulderPermille)
	if p.MinMass < 1 {
		p.MinMass = 1
	}
	if p.MaxMass < p.MinMass {
		p.MaxMass = p.MinMass
	}
	return p
}

// TargetLand is the number of land tiles a chunk of the given size aims for.
func (p IslandParams) TargetLand(size int) int {
	return size * size * ClampPermille(p.LandPermille) / 1000
}

var (
	Sparse = IslandParams{
		LandPermille: 100, MinMass: 5, MaxMass: 15,
		TreePermille: 150, LootPermille: 50, BoulderPermille: 50,
	}
	Rocky = IslandParams{
		LandPermille: 80, MinMass: 20, MaxMass: 50,
		TreePermille: 100, BoulderPermille: 200,
	}
	Forested = IslandParams{
		LandPermille: 70, MinMass: 24, MaxMass: 60,
		TreePermille: 500, LootPermille: 50,
	}
)

// IslandGenerator grows random-walk land masses in open water.
type IslandGenerator struct {
	name string
	p    IslandParams
}

func NewIslandGenerator(name string, p IslandParams) *IslandGenerator {
	return &IslandGenerator{name: name, p: p.normalized()}
}

func (g *IslandGenerator) Name() string         { return g.name }
func (g *IslandGenerator) Params() IslandParams { return g.p }

func (g *IslandGenerator) Generate(cx, cy, size int, rng *rand.Rand) []tile.Tile {
	grid := make([]tile.Tile, size*size) // zero value is Water
	target := g.p.TargetLand(size)
	land := make([]int, 0, target)

	for len(land) < target {
		free := waterCells(grid)
		if len(free) == 0 {
			break
		}
		seed := free[rng.IntN(len(free))]
		mass := min(randBetween(rng, g.p.MinMass, g.p.MaxMass), target-len(land))
		land = growMass(grid, size, seed%size, seed/size, mass, rng, land)
	}

	g.overlayFeatures(grid, land, rng)
	return grid
}

// growMass converts up to mass cells to land along a random walk starting at
// (x, y), which must be water. The walk stops early when boxed in.
func growMass(grid []tile.Tile, size, x, y, mass int, rng *rand.Rand, land []int) []int {
	for n := 0; n < mass; n++ {
		i := x + y*size
		grid[i] = tile.Land
		land = append(land, i)

		next, ok := waterNeighbor(grid, size, x, y, rng)
		if !ok {
			break
		}
		x, y = next.X, next.Y
	}
	return land
}

func waterNeighbor(grid []tile.Tile, size, x, y int, rng *rand.Rand) (Point, bool) {
	d := dirs4
	rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
	for _, o := range d {
		nx, ny := x+o.X, y+o.Y
		if nx < 0 || ny < 0 || nx >= size || ny >= size {
			continue
		}
		if grid[nx+ny*size] == tile.Water {
			return Point{X: nx, Y: ny}, true
		}
	}
	return Point{}, false
}

func waterCells(grid []tile.Tile) []int {
	out := make([]int, 0, len(grid))
	for i, t := range grid {
		if t == tile.Water {
			out = append(out, i)
		}
	}
	return out
}

func (g *IslandGenerator) overlayFeatures(grid []tile.Tile, land []int, rng *rand.Rand) {
	rng.Shuffle(len(land), func(i, j int) { land[i], land[j] = land[j], land[i] })
	tree := g.p.TreePermille
	loot := tree + g.p.LootPermille
	boulder := loot + g.p.BoulderPermille
	for _, i := range land {
		r := rng.IntN(1000)
		switch {
		case r < tree:
			grid[i] = tile.Tree
		case r < loot:
			grid[i] = tile.Loot
		case r < boulder:
			grid[i] = tile.Boulder
		}
	}
}
