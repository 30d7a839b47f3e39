// Package persistence picks the chunk backend named in tuning.
package persistence

import (
	"fmt"
	"io"
	"path/filepath"

	"islecraft.ai/internal/persistence/chunkfile"
	"islecraft.ai/internal/persistence/indexdb"
	"islecraft.ai/internal/persistence/redisstore"
	"islecraft.ai/internal/sim/tuning"
	"islecraft.ai/internal/sim/world/terrain/store"
)

// Opened is a backend plus whatever must be closed with it.
type Opened struct {
	Backend store.Backend
	Name    string
	closer  io.Closer
}

func (o *Opened) Close() error {
	if o == nil || o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// EventSink returns the backend's own event recorder when it has one.
func (o *Opened) EventSink() store.EventSink {
	if s, ok := o.Backend.(store.EventSink); ok {
		return s
	}
	return nil
}

// Open resolves relative paths against dataDir.
func Open(t tuning.Tuning, dataDir string) (*Opened, error) {
	resolve := func(p string) string {
		if filepath.IsAbs(p) || dataDir == "" {
			return p
		}
		return filepath.Join(dataDir, p)
	}
	switch t.Storage.Backend {
	case tuning.BackendFile, "":
		d, err := chunkfile.Open(resolve(t.Storage.Dir), t.ChunkSize)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: d, Name: tuning.BackendFile}, nil
	case tuning.BackendSQLite:
		db, err := indexdb.OpenSQLite(resolve(t.Storage.SQLitePath), t.ChunkSize)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &Opened{Backend: db, Name: tuning.BackendSQLite, closer: db}, nil
	case tuning.BackendRedis:
		r, err := redisstore.Open(redisstore.Config{
			Addr:    t.Storage.RedisAddr,
			Prefix:  t.Storage.RedisPrefix,
			Timeout: t.RedisTimeout(),
		}, t.ChunkSize)
		if err != nil {
			return nil, err
		}
		return &Opened{Backend: r, Name: tuning.BackendRedis, closer: r}, nil
	case tuning.BackendMemory:
		return &Opened{Backend: store.NewMemoryBackend(), Name: tuning.BackendMemory}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", t.Storage.Backend)
	}
}
