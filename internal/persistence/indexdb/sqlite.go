package indexdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"islecraft.ai/internal/persistence/chunkfile"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite stores chunks as rows of the chunks table, encoded with the
// chunkfile codec. It also records chunk lifecycle events asynchronously.
type SQLite struct {
	db   *sql.DB
	size int

	ch   chan eventRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropped atomic.Uint64
	written atomic.Uint64
}

func OpenSQLite(path string, size int) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &SQLite{
		db:   db,
		size: size,
		ch:   make(chan eventRow, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return err
	}
	_, err = p.Up(context.Background())
	return err
}

func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLite) LoadChunk(cx, cy, size int) ([]tile.Tile, bool, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM chunks WHERE cx = ? AND cy = ?`, cx, cy).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tiles, err := chunkfile.Decode(data, size)
	if err != nil {
		return nil, false, err
	}
	return tiles, true, nil
}

func (s *SQLite) SaveChunk(cx, cy int, tiles []tile.Tile) error {
	data, err := chunkfile.Encode(s.size, tiles)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO chunks (cx, cy, size, data, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(cx, cy) DO UPDATE SET size = excluded.size, data = excluded.data, updated_at = excluded.updated_at`,
		cx, cy, s.size, data, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLite) ClearAll() error {
	_, err := s.db.Exec(`DELETE FROM chunks`)
	return err
}

func (s *SQLite) Keys() ([][2]int, error) {
	rows, err := s.db.Query(`SELECT cx, cy FROM chunks ORDER BY cx, cy`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]int
	for rows.Next() {
		var k [2]int
		if err := rows.Scan(&k[0], &k[1]); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
