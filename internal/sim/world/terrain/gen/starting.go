package gen

import (
	"math/rand/v2"

	"islecraft.ai/internal/sim/world/logic/mathx"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

// StartingAreaParams shapes the landmass grown around the origin when a fresh
// world is initialized.
type StartingAreaParams struct {
	ChunkRadius    int // chunks pre-generated around (0,0) in each direction
	TileRadius     int // flood never leaves |x|,|y| <= TileRadius
	LandMin        int
	LandMax        int
	AcceptPermille int // chance a candidate neighbour joins the mass
	FeaturesMin    int
	FeaturesMax    int
	TreeWeight     int
	LootWeight     int
	BoulderWeight  int
	MinOriginLand  int // Land tiles the origin chunk must end up with
}

func DefaultStartingArea() StartingAreaParams {
	return StartingAreaParams{
		ChunkRadius:    2,
		TileRadius:     3,
		LandMin:        12,
		LandMax:        20,
		AcceptPermille: 800,
		FeaturesMin:    2,
		FeaturesMax:    4,
		TreeWeight:     60,
		LootWeight:     30,
		BoulderWeight:  10,
		MinOriginLand:  8,
	}
}

func (p StartingAreaParams) Normalized() StartingAreaParams {
	if p.ChunkRadius < 0 {
		p.ChunkRadius = 0
	}
	if p.TileRadius < 1 {
		p.TileRadius = 1
	}
	if p.LandMin < 1 {
		p.LandMin = 1
	}
	if p.LandMax < p.LandMin {
		p.LandMax = p.LandMin
	}
	p.AcceptPermille = ClampPermille(p.AcceptPermille)
	if p.AcceptPermille == 0 {
		p.AcceptPermille = 1
	}
	if p.FeaturesMin < 0 {
		p.FeaturesMin = 0
	}
	if p.FeaturesMax < p.FeaturesMin {
		p.FeaturesMax = p.FeaturesMin
	}
	if p.TreeWeight < 0 {
		p.TreeWeight = 0
	}
	if p.LootWeight < 0 {
		p.LootWeight = 0
	}
	if p.BoulderWeight < 0 {
		p.BoulderWeight = 0
	}
	if p.MinOriginLand < 0 {
		p.MinOriginLand = 0
	}
	return p
}

// TileAccess is the slice of the chunk store the bootstrap needs.
type TileAccess interface {
	GetTile(x, y int) tile.Tile
	SetTile(x, y int, t tile.Tile)
}

// GrowStartingLandmass floods land outward from the origin over 8-neighbours
// and sprinkles a few features on it. It returns the cells of the mass.
func GrowStartingLandmass(w TileAccess, p StartingAreaParams, rng *rand.Rand) []Point {
	p = p.Normalized()
	target := randBetween(rng, p.LandMin, p.LandMax)

	origin := Point{}
	w.SetTile(0, 0, tile.Land)
	inMass := map[Point]struct{}{origin: {}}
	mass := []Point{origin}
	frontier := []Point{origin}

	for len(mass) < target {
		if len(frontier) == 0 {
			// Rejected candidates get another chance from every mass cell.
			if !hasCandidate(w, p.TileRadius, inMass) {
				break
			}
			frontier = append(frontier, mass...)
		}
		c := frontier[0]
		frontier = frontier[1:]

		nbrs := dirs8
		rng.Shuffle(len(nbrs), func(i, j int) { nbrs[i], nbrs[j] = nbrs[j], nbrs[i] })
		for _, o := range nbrs {
			if len(mass) >= target {
				break
			}
			n := Point{X: c.X + o.X, Y: c.Y + o.Y}
			if !withinRadius(n, p.TileRadius) {
				continue
			}
			if _, ok := inMass[n]; ok {
				continue
			}
			if w.GetTile(n.X, n.Y) != tile.Water {
				continue
			}
			if rng.IntN(1000) < p.AcceptPermille {
				w.SetTile(n.X, n.Y, tile.Land)
				inMass[n] = struct{}{}
				mass = append(mass, n)
				frontier = append(frontier, n)
			}
		}
	}

	placeFeatures(w, p, mass, rng)
	return mass
}

func withinRadius(pt Point, r int) bool {
	return mathx.AbsInt(pt.X) <= r && mathx.AbsInt(pt.Y) <= r
}

func hasCandidate(w TileAccess, r int, inMass map[Point]struct{}) bool {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			pt := Point{X: x, Y: y}
			if _, ok := inMass[pt]; ok {
				continue
			}
			if w.GetTile(x, y) != tile.Water {
				continue
			}
			for _, o := range dirs8 {
				if _, ok := inMass[Point{X: x + o.X, Y: y + o.Y}]; ok {
					return true
				}
			}
		}
	}
	return false
}

func placeFeatures(w TileAccess, p StartingAreaParams, mass []Point, rng *rand.Rand) {
	total := p.TreeWeight + p.LootWeight + p.BoulderWeight
	if total <= 0 || len(mass) == 0 {
		return
	}
	order := make([]Point, len(mass))
	copy(order, mass)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	n := min(randBetween(rng, p.FeaturesMin, p.FeaturesMax), len(order))
	for _, pt := range order[:n] {
		r := rng.IntN(total)
		feature := tile.Boulder
		switch {
		case r < p.TreeWeight:
			feature = tile.Tree
		case r < p.TreeWeight+p.LootWeight:
			feature = tile.Loot
		}
		w.SetTile(pt.X, pt.Y, feature)
	}
}
