// Package world runs the chunk store on a single goroutine and serves reads,
// writes and viewer moves to other goroutines over channels.
package world

import (
	"io"
	"log"
	"sync"
	"sync/atomic"

	"islecraft.ai/internal/sim/world/terrain/store"
	"islecraft.ai/internal/sim/world/terrain/viewport"
)

type World struct {
	cfg    Config
	logger *log.Logger

	store *store.ChunkStore
	view  *viewport.Manager

	rectReq chan rectReq
	setReq  chan setReq
	moveReq chan moveReq
	saveReq chan saveReq

	stop     chan struct{}
	stopOnce sync.Once

	tick        atomic.Uint64
	metrics     atomic.Value
	autosaves   uint64
	lastSaveErr string
	lastSaveMS  float64
	manages     uint64
	manageErr   string
}

type Options struct {
	Backend store.Backend
	Events  store.EventSink
	Logger  *log.Logger
}

func New(cfg Config, opts Options) *World {
	cfg.normalize()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	s := store.New(store.Options{
		ChunkSize:     cfg.ChunkSize,
		CacheCapacity: cfg.CacheCapacity,
		Seed:          cfg.Seed,
		Registry:      cfg.Registry,
		Backend:       opts.Backend,
		Logger:        opts.Logger,
		Events:        opts.Events,
	})
	w := &World{
		cfg:     cfg,
		logger:  opts.Logger,
		store:   s,
		view:    viewport.New(s, cfg.ViewChunks),
		rectReq: make(chan rectReq, 64),
		setReq:  make(chan setReq, 256),
		moveReq: make(chan moveReq, 16),
		saveReq: make(chan saveReq, 4),
		stop:    make(chan struct{}),
	}
	w.publishMetrics()
	return w
}

func (w *World) Config() Config { return w.cfg }

// Init prepares the world before Run. Stored chunks are kept unless fresh is
// set, in which case storage is wiped first. A starting area is grown
// whenever storage has no readable origin chunk, then the viewer is placed at
// the origin.
func (w *World) Init(fresh bool) error {
	if fresh {
		if err := w.store.Reset(); err != nil {
			return err
		}
		w.logger.Printf("storage cleared")
	}
	_, ok, err := w.store.Backend().LoadChunk(0, 0, w.cfg.ChunkSize)
	if err != nil {
		w.logger.Printf("origin chunk unreadable (%v); growing a new starting area", err)
	}
	if !ok {
		// Without -fresh, neighbours that are still stored keep their edits.
		if fresh {
			w.store.InitializeStartingArea(w.cfg.StartingArea)
		} else {
			w.store.RepairStartingArea(w.cfg.StartingArea)
		}
		if err := w.store.SaveDirty(); err != nil {
			w.logger.Printf("save starting area: %v", err)
		}
	}
	if _, err := w.view.Update(0, 0); err != nil {
		w.logger.Printf("initial viewport: %v", err)
	}
	w.publishMetrics()
	return nil
}

func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *World) tileCounts() map[string]int {
	out := map[string]int{}
	for k, v := range w.store.TileCounts() {
		out[k.String()] = v
	}
	return out
}
