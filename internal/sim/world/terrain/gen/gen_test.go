package gen

import (
	"math/rand/v2"
	"testing"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
}

func countNonWater(grid []tile.Tile) int {
	n := 0
	for _, t := range grid {
		if t != tile.Water {
			n++
		}
	}
	return n
}

func TestIslandGenerator_LandFractionMatchesTarget(t *testing.T) {
	reg := DefaultRegistry()
	for _, g := range []Generator{reg.Rocky, reg.Forested, reg.Sparse} {
		ig := g.(*IslandGenerator)
		for seed := uint64(1); seed <= 20; seed++ {
			grid := g.Generate(0, 0, 16, testRNG(seed))
			if len(grid) != 16*16 {
				t.Fatalf("%s: grid len=%d", g.Name(), len(grid))
			}
			want := ig.Params().TargetLand(16)
			got := countNonWater(grid)
			// Masses are capped at the remaining budget, so the target is hit
			// exactly unless the chunk runs out of water.
			if got != want {
				t.Fatalf("%s seed=%d: non-water=%d want %d", g.Name(), seed, got, want)
			}
		}
	}
}

func TestIslandGenerator_OnlyExpectedTiles(t *testing.T) {
	g := NewIslandGenerator("rocky", Rocky)
	grid := g.Generate(3, -4, 16, testRNG(9))
	for i, v := range grid {
		switch v {
		case tile.Water, tile.Land, tile.Tree, tile.Boulder:
		default:
			t.Fatalf("cell %d: unexpected tile %s for rocky generator", i, v)
		}
	}
}

func TestIslandGenerator_TinyChunkTerminates(t *testing.T) {
	g := NewIslandGenerator("all-land", IslandParams{LandPermille: 1000, MinMass: 3, MaxMass: 7})
	grid := g.Generate(0, 0, 2, testRNG(1))
	if got := countNonWater(grid); got != 4 {
		t.Fatalf("non-water=%d want 4", got)
	}
}

func TestIslandGenerator_SameRNGSameContent(t *testing.T) {
	g := NewIslandGenerator("sparse", Sparse)
	a := g.Generate(1, 1, 16, testRNG(42))
	b := g.Generate(1, 1, 16, testRNG(42))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestIslandParams_Normalized(t *testing.T) {
	p := IslandParams{LandPermille: 2000, MinMass: 0, MaxMass: -3, TreePermille: -5}.normalized()
	if p.LandPermille != 1000 || p.MinMass != 1 || p.MaxMass != 1 || p.TreePermille != 0 {
		t.Fatalf("unexpected normalized params: %+v", p)
	}
}

func TestRegistry_SelectIsStableForNegativeCoords(t *testing.T) {
	reg := DefaultRegistry()
	cases := []struct {
		cx, cy int
		want   Generator
	}{
		{0, 0, reg.Rocky},
		{1, 0, reg.Forested},
		{1, 1, reg.Sparse},
		{-1, 0, reg.Sparse},
		{-1, -1, reg.Forested},
		{-3, 0, reg.Rocky},
	}
	for _, c := range cases {
		if got := reg.Select(c.cx, c.cy); got != c.want {
			t.Fatalf("Select(%d,%d)=%s want %s", c.cx, c.cy, got.Name(), c.want.Name())
		}
	}
	if reg.StartingGenerator() != reg.Sparse {
		t.Fatalf("starting generator should default to sparse")
	}
}

type mapWorld map[Point]tile.Tile

func (m mapWorld) GetTile(x, y int) tile.Tile    { return m[Point{X: x, Y: y}] }
func (m mapWorld) SetTile(x, y int, t tile.Tile) { m[Point{X: x, Y: y}] = t }

func TestGrowStartingLandmass(t *testing.T) {
	p := DefaultStartingArea()
	for seed := uint64(1); seed <= 25; seed++ {
		w := mapWorld{}
		mass := GrowStartingLandmass(w, p, testRNG(seed))

		if w.GetTile(0, 0) == tile.Water {
			t.Fatalf("seed=%d: origin is water", seed)
		}
		if len(mass) < p.LandMin || len(mass) > p.LandMax {
			t.Fatalf("seed=%d: mass=%d outside [%d,%d]", seed, len(mass), p.LandMin, p.LandMax)
		}
		features := 0
		for _, pt := range mass {
			if !withinRadius(pt, p.TileRadius) {
				t.Fatalf("seed=%d: %v outside radius %d", seed, pt, p.TileRadius)
			}
			switch w.GetTile(pt.X, pt.Y) {
			case tile.Land:
			case tile.Tree, tile.Loot, tile.Boulder:
				features++
			default:
				t.Fatalf("seed=%d: unexpected tile %s in mass", seed, w.GetTile(pt.X, pt.Y))
			}
		}
		if features > p.FeaturesMax {
			t.Fatalf("seed=%d: features=%d > %d", seed, features, p.FeaturesMax)
		}
	}
}

func TestGrowStartingLandmass_StopsWhenBoxedIn(t *testing.T) {
	p := DefaultStartingArea()
	p.TileRadius = 1
	p.LandMin, p.LandMax = 50, 50
	p.FeaturesMin, p.FeaturesMax = 0, 0
	w := mapWorld{}
	mass := GrowStartingLandmass(w, p, testRNG(3))
	if len(mass) != 9 {
		t.Fatalf("mass=%d want 9 (3x3 box)", len(mass))
	}
}
