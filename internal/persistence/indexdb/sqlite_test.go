package indexdb

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"), 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_ChunkRoundTrip(t *testing.T) {
	s := openTestDB(t)

	if _, ok, err := s.LoadChunk(0, 0, 4); ok || err != nil {
		t.Fatalf("missing chunk: ok=%v err=%v", ok, err)
	}

	in := make([]tile.Tile, 16)
	in[3] = tile.Wall
	in[15] = tile.Metal
	if err := s.SaveChunk(-2, 7, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	in[3] = tile.Torch
	if err := s.SaveChunk(-2, 7, in); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	out, ok, err := s.LoadChunk(-2, 7, 4)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if out[3] != tile.Torch || out[15] != tile.Metal {
		t.Fatalf("unexpected content: %v", out)
	}

	keys, err := s.Keys()
	if err != nil || len(keys) != 1 || keys[0] != [2]int{-2, 7} {
		t.Fatalf("keys=%v err=%v", keys, err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.LoadChunk(-2, 7, 4); ok {
		t.Fatalf("chunk survived ClearAll")
	}
}

func TestSQLite_WrongSizeIsAnError(t *testing.T) {
	s := openTestDB(t)
	if err := s.SaveChunk(0, 0, make([]tile.Tile, 16)); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.LoadChunk(0, 0, 8); err == nil || ok {
		t.Fatalf("size mismatch: ok=%v err=%v", ok, err)
	}
}

func TestSQLite_ReopenKeepsChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.sqlite")
	s, err := OpenSQLite(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	in := make([]tile.Tile, 16)
	in[0] = tile.Boat
	if err := s.SaveChunk(1, 1, in); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := OpenSQLite(path, 4)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	out, ok, err := s2.LoadChunk(1, 1, 4)
	if err != nil || !ok || out[0] != tile.Boat {
		t.Fatalf("after reopen: ok=%v err=%v", ok, err)
	}
}

func TestSQLite_RecordsChunkEvents(t *testing.T) {
	s := openTestDB(t)
	s.ChunkEvent("generate", 3, 4, nil)
	s.ChunkEvent("save_error", 3, 4, errors.New("disk full"))

	deadline := time.Now().Add(5 * time.Second)
	var evs []Event
	for time.Now().Before(deadline) {
		var err error
		evs, err = s.RecentEvents(3, 4, 10)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(evs) == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(evs) != 2 {
		t.Fatalf("events=%d want 2", len(evs))
	}
	if evs[0].Kind != "save_error" || evs[0].Err != "disk full" || evs[1].Kind != "generate" {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestSQLite_EventQueueDropsWhenFull(t *testing.T) {
	s := &SQLite{ch: make(chan eventRow, 1)}
	s.ChunkEvent("load", 0, 0, nil)
	s.ChunkEvent("load", 0, 1, nil)
	st := s.EventStats()
	if st.Dropped != 1 || st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestSQLite_MigrationsCreateTables(t *testing.T) {
	s := openTestDB(t)
	for _, name := range []string{"chunks", "chunk_events"} {
		var got string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("table %s missing", name)
		}
		if err != nil {
			t.Fatal(err)
		}
	}
}
