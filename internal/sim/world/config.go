package world

import (
	"time"

	"islecraft.ai/internal/sim/tuning"
	"islecraft.ai/internal/sim/world/terrain/gen"
)

type Config struct {
	ChunkSize     int
	ViewChunks    int
	CacheCapacity int
	Seed          int64
	TickRateHz    int
	// AutosaveEvery <= 0 disables periodic saves; dirty chunks are still
	// flushed on shutdown.
	AutosaveEvery time.Duration
	// ManageEvery trims chunks outside the view window that reads and
	// writes made resident. Always on; defaults to 5s.
	ManageEvery time.Duration

	Registry     *gen.Registry
	StartingArea gen.StartingAreaParams

	// MaxRect bounds ReadRect requests (cells per side).
	MaxRect int
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		ChunkSize:     t.ChunkSize,
		ViewChunks:    t.ViewChunks,
		CacheCapacity: t.CacheCapacity,
		Seed:          t.Seed,
		TickRateHz:    t.TickRateHz,
		AutosaveEvery: t.AutosaveEvery(),
		ManageEvery:   t.ManageEvery(),
		Registry:      t.Registry(),
		StartingArea:  t.StartingParams(),
	}
}

func (c *Config) normalize() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 16
	}
	if c.ViewChunks <= 0 {
		c.ViewChunks = 5
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.ManageEvery <= 0 {
		c.ManageEvery = 5 * time.Second
	}
	if c.MaxRect <= 0 {
		c.MaxRect = 256
	}
	if c.Registry == nil {
		c.Registry = gen.DefaultRegistry()
	}
	if c.StartingArea == (gen.StartingAreaParams{}) {
		c.StartingArea = gen.DefaultStartingArea()
	}
}
