package viewport

import (
	"errors"
	"testing"

	"islecraft.ai/internal/sim/world/terrain/store"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

type flakyBackend struct {
	*store.MemoryBackend
	fail bool
}

func (f *flakyBackend) SaveChunk(cx, cy int, tiles []tile.Tile) error {
	if f.fail {
		return errors.New("read-only filesystem")
	}
	return f.MemoryBackend.SaveChunk(cx, cy, tiles)
}

func TestManager_WindowIsResident(t *testing.T) {
	s := store.New(store.Options{ChunkSize: 16, Seed: 1})
	m := New(s, 5)
	changed, err := m.Update(0, 0)
	if err != nil || !changed {
		t.Fatalf("first update: changed=%v err=%v", changed, err)
	}
	if n := len(s.ResidentKeys()); n != 25 {
		t.Fatalf("resident=%d want 25", n)
	}
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if !s.IsResident(dx, dy) {
				t.Fatalf("(%d,%d) not resident", dx, dy)
			}
		}
	}
}

func TestManager_NoOpInsideSameChunk(t *testing.T) {
	s := store.New(store.Options{ChunkSize: 16, Seed: 1})
	m := New(s, 3)
	if _, err := m.Update(1, 1); err != nil {
		t.Fatal(err)
	}
	generated := s.Stats().Generated
	changed, err := m.Update(15, 15)
	if err != nil || changed {
		t.Fatalf("same chunk: changed=%v err=%v", changed, err)
	}
	if s.Stats().Generated != generated {
		t.Fatalf("no-op update generated chunks")
	}
}

func TestManager_EvictsOutsideWindowAndSavesDirty(t *testing.T) {
	b := store.NewMemoryBackend()
	s := store.New(store.Options{ChunkSize: 16, Seed: 1, Backend: b})
	m := New(s, 3)
	if _, err := m.Update(0, 0); err != nil {
		t.Fatal(err)
	}
	s.SetTile(-10, -10, tile.Wall) // chunk (-1,-1)
	s.GetTile(20, 0)               // chunk (1,0), clean

	if _, err := m.Update(16*5, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if s.IsResident(-1, -1) || s.IsResident(0, 0) {
		t.Fatalf("chunks outside the window are still resident: %v", s.ResidentKeys())
	}
	if len(s.ResidentKeys()) != 9 {
		t.Fatalf("resident=%d want 9", len(s.ResidentKeys()))
	}
	if b.Len() != 1 {
		t.Fatalf("saved=%d want only the dirty chunk", b.Len())
	}
	if got := s.GetTile(-10, -10); got != tile.Wall {
		t.Fatalf("reloaded tile=%s want WALL", got)
	}
}

func TestManager_EvictionFailureKeepsGoing(t *testing.T) {
	b := &flakyBackend{MemoryBackend: store.NewMemoryBackend()}
	s := store.New(store.Options{ChunkSize: 8, Seed: 1, Backend: b})
	m := New(s, 1)
	if _, err := m.Update(0, 0); err != nil {
		t.Fatal(err)
	}
	s.SetTile(0, 0, tile.Torch)
	s.EnsureResident(3, 3)

	b.fail = true
	if _, err := m.Update(100, 0); err == nil {
		t.Fatalf("expected eviction error")
	}
	if !s.IsResident(0, 0) || !s.IsDirty(0, 0) {
		t.Fatalf("failed chunk must stay resident and dirty")
	}
	if s.IsResident(3, 3) {
		t.Fatalf("clean chunk should still be evicted")
	}

	b.fail = false
	if err := m.Manage(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.IsResident(0, 0) {
		t.Fatalf("chunk should be evicted after retry")
	}
}

func TestManager_SetViewerThenManage(t *testing.T) {
	s := store.New(store.Options{ChunkSize: 16, Seed: 1})
	m := New(s, 5)
	m.SetViewer(-1, -1)
	if len(s.ResidentKeys()) != 0 {
		t.Fatalf("SetViewer must not load chunks")
	}
	if c, ok := m.Center(); !ok || c != (store.ChunkKey{CX: -1, CY: -1}) {
		t.Fatalf("center=%v ok=%v", c, ok)
	}
	if err := m.Manage(); err != nil {
		t.Fatal(err)
	}
	if !s.IsResident(-3, -3) || !s.IsResident(1, 1) || s.IsResident(2, 2) {
		t.Fatalf("window around (-1,-1) wrong: %v", s.ResidentKeys())
	}
}
