package store

import (
	"math/rand/v2"
	"sort"

	"islecraft.ai/internal/sim/world/logic/mathx"
	"islecraft.ai/internal/sim/world/terrain/gen"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

// InitializeStartingArea regenerates the chunks around the origin with the
// starting generator and grows a landmass on (0,0) so a viewer never starts in
// open water. Every touched chunk is left dirty.
func (s *ChunkStore) InitializeStartingArea(p gen.StartingAreaParams) {
	s.growStartingArea(p, false)
}

// RepairStartingArea is InitializeStartingArea for a world that already has
// saved chunks: chunks storage still holds are loaded and left untouched, and
// only missing or unreadable ones get starting content.
func (s *ChunkStore) RepairStartingArea(p gen.StartingAreaParams) {
	s.growStartingArea(p, true)
}

func (s *ChunkStore) growStartingArea(p gen.StartingAreaParams, keepStored bool) {
	p = p.Normalized()
	g := s.gens.StartingGenerator()
	kept := map[ChunkKey]bool{}
	for cy := -p.ChunkRadius; cy <= p.ChunkRadius; cy++ {
		for cx := -p.ChunkRadius; cx <= p.ChunkRadius; cx++ {
			k := ChunkKey{CX: cx, CY: cy}
			if keepStored {
				if _, ok := s.chunks[k]; ok {
					kept[k] = true
					continue
				}
				if ch := s.load(cx, cy); ch != nil {
					s.chunks[k] = ch
					kept[k] = true
					continue
				}
			}
			s.install(s.generateWith(g, cx, cy))
		}
	}

	var rng *rand.Rand
	if s.seed != 0 {
		rng = rand.New(rand.NewPCG(mathx.Hash2(s.seed, 0x5741, 0x5254), chunkSeedSalt))
	} else {
		rng = s.rng
	}
	mass := gen.GrowStartingLandmass(keepOut{s: s, kept: kept}, p, rng)
	topped := 0
	if ox, oy := s.WorldToChunk(0, 0); !kept[ChunkKey{CX: ox, CY: oy}] {
		topped = s.topUpOriginChunk(p.MinOriginLand)
	}
	s.logger.Printf("starting area: %d chunks (%d kept), landmass=%d, origin top-up=%d",
		(2*p.ChunkRadius+1)*(2*p.ChunkRadius+1), len(kept), len(mass), topped)
}

// keepOut hides kept chunks from the landmass flood: their cells read as
// solid and writes to them are dropped.
type keepOut struct {
	s    *ChunkStore
	kept map[ChunkKey]bool
}

func (k keepOut) isKept(x, y int) bool {
	cx, cy := k.s.WorldToChunk(x, y)
	return k.kept[ChunkKey{CX: cx, CY: cy}]
}

func (k keepOut) GetTile(x, y int) tile.Tile {
	if k.isKept(x, y) {
		return tile.Wall
	}
	return k.s.GetTile(x, y)
}

func (k keepOut) SetTile(x, y int, t tile.Tile) {
	if !k.isKept(x, y) {
		k.s.SetTile(x, y, t)
	}
}

// topUpOriginChunk converts Water to Land inside the origin's chunk, nearest
// to the origin first, until the chunk holds at least minLand Land tiles.
func (s *ChunkStore) topUpOriginChunk(minLand int) int {
	cx, cy := s.WorldToChunk(0, 0)
	ch := s.resolve(cx, cy)
	land := 0
	var water []gen.Point
	for ty := 0; ty < s.size; ty++ {
		for tx := 0; tx < s.size; tx++ {
			switch ch.Get(tx, ty) {
			case tile.Land:
				land++
			case tile.Water:
				x, y := s.ChunkToWorld(cx, cy, tx, ty)
				water = append(water, gen.Point{X: x, Y: y})
			}
		}
	}
	if land >= minLand {
		return 0
	}
	sort.SliceStable(water, func(i, j int) bool {
		return dist2(water[i]) < dist2(water[j])
	})
	n := 0
	for _, pt := range water {
		if land >= minLand {
			break
		}
		s.SetTile(pt.X, pt.Y, tile.Land)
		land++
		n++
	}
	return n
}

func dist2(p gen.Point) int {
	return p.X*p.X + p.Y*p.Y
}
