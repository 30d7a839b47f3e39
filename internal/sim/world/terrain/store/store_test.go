package store

import (
	"errors"
	"testing"
	"testing/quick"

	"islecraft.ai/internal/sim/world/terrain/gen"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

func newTestStore(t *testing.T, b Backend) *ChunkStore {
	t.Helper()
	return New(Options{ChunkSize: 16, CacheCapacity: 256, Seed: 7, Backend: b})
}

type failingBackend struct {
	*MemoryBackend
	failSave bool
	failLoad bool
}

func (f *failingBackend) SaveChunk(cx, cy int, tiles []tile.Tile) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryBackend.SaveChunk(cx, cy, tiles)
}

func (f *failingBackend) LoadChunk(cx, cy, size int) ([]tile.Tile, bool, error) {
	if f.failLoad {
		return nil, false, errors.New("corrupt")
	}
	return f.MemoryBackend.LoadChunk(cx, cy, size)
}

type recordingSink struct {
	kinds []string
}

func (r *recordingSink) ChunkEvent(kind string, cx, cy int, err error) {
	r.kinds = append(r.kinds, kind)
}

func TestCoordsNegative(t *testing.T) {
	if cx, cy := WorldToChunk(16, -1, -1); cx != -1 || cy != -1 {
		t.Fatalf("WorldToChunk(-1,-1)=(%d,%d) want (-1,-1)", cx, cy)
	}
	if tx, ty := LocalOffset(16, -1, -1); tx != 15 || ty != 15 {
		t.Fatalf("LocalOffset(-1,-1)=(%d,%d) want (15,15)", tx, ty)
	}
	if cx, _ := WorldToChunk(16, -16, 0); cx != -1 {
		t.Fatalf("WorldToChunk(-16)=%d want -1", cx)
	}
	if cx, _ := WorldToChunk(16, -17, 0); cx != -2 {
		t.Fatalf("WorldToChunk(-17)=%d want -2", cx)
	}
}

func TestCoordsRoundTrip(t *testing.T) {
	f := func(x, y int32, sizeSeed uint8) bool {
		size := int(sizeSeed%31) + 1
		cx, cy := WorldToChunk(size, int(x), int(y))
		tx, ty := LocalOffset(size, int(x), int(y))
		if tx < 0 || tx >= size || ty < 0 || ty >= size {
			return false
		}
		wx, wy := ChunkToWorld(size, cx, cy, tx, ty)
		return wx == int(x) && wy == int(y)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestReadYourWrite(t *testing.T) {
	s := newTestStore(t, nil)
	f := func(x, y int16, v uint8) bool {
		want := tile.Tile(v % uint8(len(tile.All())))
		s.SetTile(int(x), int(y), want)
		return s.GetTile(int(x), int(y)) == want
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestCacheTransparency(t *testing.T) {
	s := New(Options{ChunkSize: 8, CacheCapacity: 16, Seed: 3})
	for y := -20; y < 20; y++ {
		for x := -20; x < 20; x++ {
			got := s.GetTile(x, y)
			cx, cy := s.WorldToChunk(x, y)
			tx, ty := s.LocalOffset(x, y)
			tiles, ok := s.Chunk(cx, cy)
			if !ok {
				t.Fatalf("chunk (%d,%d) not resident after GetTile", cx, cy)
			}
			if want := tiles[tx+ty*8]; got != want {
				t.Fatalf("(%d,%d): cache=%s chunk=%s", x, y, got, want)
			}
		}
	}
	if s.Stats().Cache.Len > 16 {
		t.Fatalf("cache exceeded capacity: %d", s.Stats().Cache.Len)
	}
}

func TestWallSurvivesEvictAndReload(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)

	s.SetTile(5, 5, tile.Wall)
	if got := s.GetTile(5, 5); got != tile.Wall {
		t.Fatalf("GetTile(5,5)=%s want WALL", got)
	}
	if err := s.SaveDirty(); err != nil {
		t.Fatalf("SaveDirty: %v", err)
	}
	if err := s.Evict(0, 0); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if s.IsResident(0, 0) {
		t.Fatalf("chunk still resident after evict")
	}
	if got := s.GetTile(5, 5); got != tile.Wall {
		t.Fatalf("after reload GetTile(5,5)=%s want WALL", got)
	}
	if st := s.Stats(); st.Loaded != 1 {
		t.Fatalf("loaded=%d want 1 (chunk must come from storage)", st.Loaded)
	}
}

func TestEvictSavesDirtyChunk(t *testing.T) {
	b := NewMemoryBackend()
	s := New(Options{ChunkSize: 16, CacheCapacity: 64, Backend: b})

	s.SetTile(-3, 40, tile.Torch)
	if !s.IsDirty(-1, 2) {
		t.Fatalf("chunk (-1,2) should be dirty")
	}
	if err := s.Evict(-1, 2); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if s.IsDirty(-1, 2) || b.Len() != 1 {
		t.Fatalf("dirty=%v saved=%d", s.IsDirty(-1, 2), b.Len())
	}
	if got := s.GetTile(-3, 40); got != tile.Torch {
		t.Fatalf("got %s want TORCH", got)
	}
}

func TestEvictCleanChunkDoesNotSave(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	s.GetTile(100, 100)
	cx, cy := s.WorldToChunk(100, 100)
	if err := s.Evict(cx, cy); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("clean chunk was saved")
	}
	if err := s.Evict(cx, cy); err != nil {
		t.Fatalf("evicting a non-resident chunk: %v", err)
	}
}

func TestSetTileSameValueStillDirty(t *testing.T) {
	s := newTestStore(t, nil)
	v := s.GetTile(1, 1)
	s.SetTile(1, 1, v)
	if !s.IsDirty(0, 0) {
		t.Fatalf("unchanged write should still mark chunk dirty")
	}
}

func TestFailedSaveKeepsChunkResidentAndDirty(t *testing.T) {
	b := &failingBackend{MemoryBackend: NewMemoryBackend(), failSave: true}
	s := newTestStore(t, b)
	s.SetTile(2, 2, tile.Wall)

	if err := s.Evict(0, 0); err == nil {
		t.Fatalf("expected save error")
	}
	if !s.IsResident(0, 0) || !s.IsDirty(0, 0) {
		t.Fatalf("resident=%v dirty=%v", s.IsResident(0, 0), s.IsDirty(0, 0))
	}
	if err := s.SaveDirty(); err == nil {
		t.Fatalf("expected SaveDirty error")
	}
	if s.Stats().SaveErrors != 2 {
		t.Fatalf("save errors=%d want 2", s.Stats().SaveErrors)
	}

	b.failSave = false
	if err := s.SaveDirty(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.IsDirty(0, 0) {
		t.Fatalf("chunk still dirty after successful retry")
	}
}

func TestLoadErrorFallsBackToGeneration(t *testing.T) {
	b := &failingBackend{MemoryBackend: NewMemoryBackend(), failLoad: true}
	sink := &recordingSink{}
	s := New(Options{ChunkSize: 16, Backend: b, Events: sink})
	for _, v := range s.ReadRect(0, 0, 16, 16) {
		if !v.Valid() {
			t.Fatalf("invalid tile %d", v)
		}
	}
	st := s.Stats()
	if st.LoadErrors != 1 || st.Generated != 1 {
		t.Fatalf("load errors=%d generated=%d", st.LoadErrors, st.Generated)
	}
	if len(sink.kinds) != 2 || sink.kinds[0] != EventLoadError || sink.kinds[1] != EventGenerate {
		t.Fatalf("events=%v", sink.kinds)
	}
}

func TestShortSavedChunkIsRegenerated(t *testing.T) {
	b := NewMemoryBackend()
	if err := b.SaveChunk(0, 0, []tile.Tile{tile.Wall}); err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, b)
	s.GetTile(0, 0)
	if s.Stats().LoadErrors != 1 {
		t.Fatalf("expected a load error for a short chunk")
	}
}

func TestSeededGenerationIsReproducible(t *testing.T) {
	a := New(Options{ChunkSize: 16, Seed: 99})
	b := New(Options{ChunkSize: 16, Seed: 99})
	ra := a.ReadRect(-40, -40, 80, 80)
	rb := b.ReadRect(-40, -40, 80, 80)
	for i := range ra {
		if ra[i] != rb[i] {
			t.Fatalf("cell %d differs: %s vs %s", i, ra[i], rb[i])
		}
	}
}

func TestTrackedCounts(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetTile(0, 0, tile.Wood)
	s.SetTile(1, 0, tile.Wood)
	s.SetTile(1, 0, tile.Wood)
	s.SetTile(2, 0, tile.Metal)
	s.SetTile(0, 0, tile.Metal)

	got := s.TileCounts()
	if got[tile.Wood] != 1 || got[tile.Metal] != 2 {
		t.Fatalf("world counts=%v", got)
	}
	cc, ok := s.ChunkCounts(0, 0)
	if !ok || cc[tile.Wood] != 1 || cc[tile.Metal] != 2 {
		t.Fatalf("chunk counts=%v ok=%v", cc, ok)
	}
	got[tile.Wood] = 100
	if s.TileCounts()[tile.Wood] != 1 {
		t.Fatalf("TileCounts must return a copy")
	}
}

func TestResetClearsEverything(t *testing.T) {
	b := NewMemoryBackend()
	s := newTestStore(t, b)
	s.SetTile(3, 3, tile.Wood)
	if err := s.SaveDirty(); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if b.Len() != 0 || len(s.ResidentKeys()) != 0 || len(s.DirtyKeys()) != 0 {
		t.Fatalf("state survived reset: backend=%d resident=%v", b.Len(), s.ResidentKeys())
	}
	if s.TileCounts()[tile.Wood] != 0 {
		t.Fatalf("counts survived reset")
	}
}

func TestResidentKeysSorted(t *testing.T) {
	s := newTestStore(t, nil)
	for _, k := range []ChunkKey{{2, 0}, {-1, 5}, {-1, -3}, {0, 0}} {
		s.EnsureResident(k.CX, k.CY)
	}
	got := s.ResidentKeys()
	want := []ChunkKey{{-1, -3}, {-1, 5}, {0, 0}, {2, 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys=%v want %v", got, want)
		}
	}
}

func TestInitializeStartingArea(t *testing.T) {
	p := gen.DefaultStartingArea()
	for seed := int64(1); seed <= 15; seed++ {
		s := New(Options{ChunkSize: 16, Seed: seed})
		s.InitializeStartingArea(p)

		if s.GetTile(0, 0) == tile.Water {
			t.Fatalf("seed=%d: origin is water", seed)
		}
		if n := len(s.ResidentKeys()); n != 25 {
			t.Fatalf("seed=%d: resident=%d want 25", seed, n)
		}
		tiles, _ := s.Chunk(0, 0)
		land := 0
		for _, v := range tiles {
			if v == tile.Land {
				land++
			}
		}
		if land < p.MinOriginLand {
			t.Fatalf("seed=%d: origin chunk land=%d < %d", seed, land, p.MinOriginLand)
		}
		if !s.IsDirty(-2, 2) {
			t.Fatalf("seed=%d: starting chunks should be dirty", seed)
		}
	}
}

func TestInitializeStartingArea_TopUp(t *testing.T) {
	p := gen.DefaultStartingArea()
	p.LandMin, p.LandMax = 1, 1
	p.FeaturesMin, p.FeaturesMax = 0, 0
	p.MinOriginLand = 30
	reg := gen.DefaultRegistry()
	reg.Starting = gen.NewIslandGenerator("empty", gen.IslandParams{})
	s := New(Options{ChunkSize: 16, Seed: 5, Registry: reg})
	s.InitializeStartingArea(p)

	tiles, _ := s.Chunk(0, 0)
	land := 0
	for _, v := range tiles {
		if v == tile.Land {
			land++
		}
	}
	if land != 30 {
		t.Fatalf("origin chunk land=%d want 30", land)
	}
	if s.GetTile(1, 1) != tile.Land {
		t.Fatalf("cells nearest the origin should be filled first")
	}
}

func TestRepairStartingArea_KeepsStoredChunks(t *testing.T) {
	b := NewMemoryBackend()
	east := make([]tile.Tile, 256)
	east[0] = tile.Wall
	if err := b.SaveChunk(1, 0, east); err != nil {
		t.Fatal(err)
	}
	// An all-water chunk touching the origin: the flood would normally
	// spill land into it.
	if err := b.SaveChunk(-1, -1, make([]tile.Tile, 256)); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, b)
	s.RepairStartingArea(gen.DefaultStartingArea())

	if got := s.GetTile(16, 0); got != tile.Wall {
		t.Fatalf("stored edit lost: (16,0)=%s", got)
	}
	nw, _ := s.Chunk(-1, -1)
	for i, v := range nw {
		if v != tile.Water {
			t.Fatalf("kept chunk (-1,-1) changed at %d: %s", i, v)
		}
	}
	if s.IsDirty(1, 0) || s.IsDirty(-1, -1) {
		t.Fatalf("kept chunks should stay clean")
	}
	if !s.IsDirty(0, 0) || s.GetTile(0, 0) == tile.Water {
		t.Fatalf("origin chunk should be regrown")
	}
	if n := len(s.ResidentKeys()); n != 25 {
		t.Fatalf("resident=%d want 25", n)
	}
	if err := s.SaveDirty(); err != nil {
		t.Fatal(err)
	}
	saved, _, _ := b.LoadChunk(1, 0, 16)
	if saved[0] != tile.Wall {
		t.Fatalf("stored chunk overwritten")
	}
}

func TestRepairStartingArea_RegrowsUnreadableChunks(t *testing.T) {
	b := &failingBackend{MemoryBackend: NewMemoryBackend(), failLoad: true}
	s := newTestStore(t, b)
	s.RepairStartingArea(gen.DefaultStartingArea())
	if s.Stats().LoadErrors != 25 || len(s.DirtyKeys()) != 25 {
		t.Fatalf("stats=%+v dirty=%d", s.Stats(), len(s.DirtyKeys()))
	}
	if s.GetTile(0, 0) == tile.Water {
		t.Fatalf("origin is water")
	}
}
