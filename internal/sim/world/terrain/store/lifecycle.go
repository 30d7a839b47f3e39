package store

import (
	"errors"
	"fmt"
)

// resolve returns the resident chunk, loading or generating it first.
func (s *ChunkStore) resolve(cx, cy int) *Chunk {
	k := ChunkKey{CX: cx, CY: cy}
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	ch := s.load(cx, cy)
	if ch == nil {
		ch = s.GenerateChunk(cx, cy)
	}
	s.chunks[k] = ch
	return ch
}

// load reads a saved chunk. Any failure is logged and treated as absent.
func (s *ChunkStore) load(cx, cy int) *Chunk {
	tiles, ok, err := s.backend.LoadChunk(cx, cy, s.size)
	if err != nil {
		s.loadErrors++
		s.logger.Printf("load chunk (%d,%d): %v; regenerating", cx, cy, err)
		s.emit(EventLoadError, ChunkKey{CX: cx, CY: cy}, err)
		return nil
	}
	if !ok {
		return nil
	}
	if len(tiles) != s.size*s.size {
		s.loadErrors++
		err := fmt.Errorf("%d tiles, want %d", len(tiles), s.size*s.size)
		s.logger.Printf("load chunk (%d,%d): %v; regenerating", cx, cy, err)
		s.emit(EventLoadError, ChunkKey{CX: cx, CY: cy}, err)
		return nil
	}
	s.loaded++
	s.emit(EventLoad, ChunkKey{CX: cx, CY: cy}, nil)
	return NewChunk(cx, cy, s.size, tiles)
}

// EnsureResident loads or generates the chunk if it is not resident yet.
func (s *ChunkStore) EnsureResident(cx, cy int) {
	s.resolve(cx, cy)
}

func (s *ChunkStore) saveChunk(k ChunkKey, ch *Chunk) error {
	if err := s.backend.SaveChunk(k.CX, k.CY, ch.Tiles); err != nil {
		s.saveErrors++
		err = fmt.Errorf("save chunk (%d,%d): %w", k.CX, k.CY, err)
		s.logger.Printf("%v", err)
		s.emit(EventSaveError, k, err)
		return err
	}
	s.saved++
	delete(s.dirty, k)
	s.emit(EventSave, k, nil)
	return nil
}

// Evict saves the chunk if dirty, drops its cache entries and removes it.
// When the save fails the chunk stays resident and dirty.
func (s *ChunkStore) Evict(cx, cy int) error {
	k := ChunkKey{CX: cx, CY: cy}
	ch, ok := s.chunks[k]
	if !ok {
		return nil
	}
	if _, dirty := s.dirty[k]; dirty {
		if err := s.saveChunk(k, ch); err != nil {
			return err
		}
	}
	x0, y0 := s.ChunkToWorld(cx, cy, 0, 0)
	s.cache.RemoveRect(x0, y0, s.size, s.size)
	delete(s.chunks, k)
	s.evicted++
	s.emit(EventEvict, k, nil)
	return nil
}

// SaveDirty flushes every dirty chunk. Chunks that fail stay dirty and their
// errors are joined.
func (s *ChunkStore) SaveDirty() error {
	var errs []error
	for _, k := range s.DirtyKeys() {
		ch, ok := s.chunks[k]
		if !ok {
			delete(s.dirty, k)
			continue
		}
		if err := s.saveChunk(k, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset clears stable storage and drops all in-memory state.
func (s *ChunkStore) Reset() error {
	if err := s.backend.ClearAll(); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	clear(s.chunks)
	clear(s.dirty)
	clear(s.counts)
	s.cache.Purge()
	s.emit(EventReset, ChunkKey{}, nil)
	return nil
}

// install replaces a chunk's content wholesale and marks it dirty.
func (s *ChunkStore) install(ch *Chunk) {
	k := ChunkKey{CX: ch.CX, CY: ch.CY}
	x0, y0 := s.ChunkToWorld(ch.CX, ch.CY, 0, 0)
	s.cache.RemoveRect(x0, y0, s.size, s.size)
	s.chunks[k] = ch
	s.dirty[k] = struct{}{}
}
