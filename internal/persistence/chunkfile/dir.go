package chunkfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"islecraft.ai/internal/sim/world/terrain/tile"
)

const Ext = ".chunk.zst"

// Dir keeps chunk_<cx>_<cy>.chunk.zst files in one directory.
type Dir struct {
	path string
	size int
}

// Open creates the directory if needed.
func Open(path string, size int) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("chunk dir: %w", err)
	}
	return &Dir{path: path, size: size}, nil
}

func (d *Dir) Path() string { return d.path }

func (d *Dir) fileName(cx, cy int) string {
	return filepath.Join(d.path, fmt.Sprintf("chunk_%d_%d%s", cx, cy, Ext))
}

func (d *Dir) LoadChunk(cx, cy, size int) ([]tile.Tile, bool, error) {
	b, err := os.ReadFile(d.fileName(cx, cy))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tiles, err := Decode(b, size)
	if err != nil {
		return nil, false, err
	}
	return tiles, true, nil
}

func (d *Dir) SaveChunk(cx, cy int, tiles []tile.Tile) error {
	b, err := Encode(d.size, tiles)
	if err != nil {
		return err
	}
	return writeFileAtomic(d.fileName(cx, cy), b)
}

// ClearAll removes every regular file in the directory and keeps the
// directory itself. Removal continues past failures.
func (d *Dir) ClearAll() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(d.path, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys lists the chunks that have a save file.
func (d *Dir) Keys() ([][2]int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var out [][2]int
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, "chunk_") || !strings.HasSuffix(name, Ext) {
			continue
		}
		var cx, cy int
		if _, err := fmt.Sscanf(strings.TrimSuffix(name, Ext), "chunk_%d_%d", &cx, &cy); err != nil {
			continue
		}
		out = append(out, [2]int{cx, cy})
	}
	return out, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
