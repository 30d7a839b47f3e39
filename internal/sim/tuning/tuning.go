package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"islecraft.ai/internal/sim/world/terrain/gen"
)

type Tuning struct {
	ChunkSize       int   `yaml:"chunk_size" json:"chunk_size"`
	ViewChunks      int   `yaml:"view_chunks" json:"view_chunks"`
	CacheCapacity   int   `yaml:"cache_capacity" json:"cache_capacity"`
	Seed            int64 `yaml:"seed" json:"seed"`
	AutosaveEveryMs int   `yaml:"autosave_every_ms" json:"autosave_every_ms"`
	ManageEveryMs   int   `yaml:"manage_every_ms" json:"manage_every_ms"`
	TickRateHz      int   `yaml:"tick_rate_hz" json:"tick_rate_hz"`

	Storage      Storage      `yaml:"storage" json:"storage"`
	Generators   Generators   `yaml:"generators" json:"generators"`
	StartingArea StartingArea `yaml:"starting_area" json:"starting_area"`
}

type Storage struct {
	Backend        string `yaml:"backend" json:"backend"`
	Dir            string `yaml:"dir" json:"dir"`
	SQLitePath     string `yaml:"sqlite_path" json:"sqlite_path"`
	RedisAddr      string `yaml:"redis_addr" json:"redis_addr"`
	RedisPrefix    string `yaml:"redis_prefix" json:"redis_prefix"`
	RedisTimeoutMs int    `yaml:"redis_timeout_ms" json:"redis_timeout_ms"`
}

type Generators struct {
	Sparse   Island `yaml:"sparse" json:"sparse"`
	Rocky    Island `yaml:"rocky" json:"rocky"`
	Forested Island `yaml:"forested" json:"forested"`
}

type Island struct {
	LandPermille    int `yaml:"land_permille" json:"land_permille"`
	MinMass         int `yaml:"min_mass" json:"min_mass"`
	MaxMass         int `yaml:"max_mass" json:"max_mass"`
	TreePermille    int `yaml:"tree_permille" json:"tree_permille"`
	LootPermille    int `yaml:"loot_permille" json:"loot_permille"`
	BoulderPermille int `yaml:"boulder_permille" json:"boulder_permille"`
}

type StartingArea struct {
	ChunkRadius    int `yaml:"chunk_radius" json:"chunk_radius"`
	TileRadius     int `yaml:"tile_radius" json:"tile_radius"`
	LandMin        int `yaml:"land_min" json:"land_min"`
	LandMax        int `yaml:"land_max" json:"land_max"`
	AcceptPermille int `yaml:"accept_permille" json:"accept_permille"`
	FeaturesMin    int `yaml:"features_min" json:"features_min"`
	FeaturesMax    int `yaml:"features_max" json:"features_max"`
	TreeWeight     int `yaml:"tree_weight" json:"tree_weight"`
	LootWeight     int `yaml:"loot_weight" json:"loot_weight"`
	BoulderWeight  int `yaml:"boulder_weight" json:"boulder_weight"`
	MinOriginLand  int `yaml:"min_origin_land" json:"min_origin_land"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Defaults mirrors the constants the world was first tuned with.
func Defaults() Tuning {
	sa := gen.DefaultStartingArea()
	return Tuning{
		ChunkSize:       16,
		ViewChunks:      5,
		CacheCapacity:   10000,
		AutosaveEveryMs: 30000,
		ManageEveryMs:   5000,
		TickRateHz:      10,
		Storage: Storage{
			Backend:        BackendFile,
			Dir:            "chunks",
			SQLitePath:     "chunks.sqlite",
			RedisAddr:      "localhost:6379",
			RedisPrefix:    "islecraft",
			RedisTimeoutMs: 2000,
		},
		Generators: Generators{
			Sparse:   islandFrom(gen.Sparse),
			Rocky:    islandFrom(gen.Rocky),
			Forested: islandFrom(gen.Forested),
		},
		StartingArea: StartingArea{
			ChunkRadius:    sa.ChunkRadius,
			TileRadius:     sa.TileRadius,
			LandMin:        sa.LandMin,
			LandMax:        sa.LandMax,
			AcceptPermille: sa.AcceptPermille,
			FeaturesMin:    sa.FeaturesMin,
			FeaturesMax:    sa.FeaturesMax,
			TreeWeight:     sa.TreeWeight,
			LootWeight:     sa.LootWeight,
			BoulderWeight:  sa.BoulderWeight,
			MinOriginLand:  sa.MinOriginLand,
		},
	}
}

func islandFrom(p gen.IslandParams) Island {
	return Island{
		LandPermille:    p.LandPermille,
		MinMass:         p.MinMass,
		MaxMass:         p.MaxMass,
		TreePermille:    p.TreePermille,
		LootPermille:    p.LootPermille,
		BoulderPermille: p.BoulderPermille,
	}
}

// Load reads a tuning file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	return t, nil
}

// Normalize fills zero values from Defaults and fixes inverted ranges.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.ChunkSize <= 0 {
		t.ChunkSize = d.ChunkSize
	}
	if t.ViewChunks <= 0 {
		t.ViewChunks = d.ViewChunks
	}
	if t.CacheCapacity <= 0 {
		t.CacheCapacity = d.CacheCapacity
	}
	if t.AutosaveEveryMs < 0 {
		t.AutosaveEveryMs = 0
	}
	if t.ManageEveryMs <= 0 {
		t.ManageEveryMs = d.ManageEveryMs
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	t.Storage.Backend = strings.ToLower(strings.TrimSpace(t.Storage.Backend))
	if t.Storage.Backend == "" {
		t.Storage.Backend = d.Storage.Backend
	}
	if t.Storage.Dir == "" {
		t.Storage.Dir = d.Storage.Dir
	}
	if t.Storage.SQLitePath == "" {
		t.Storage.SQLitePath = d.Storage.SQLitePath
	}
	if t.Storage.RedisPrefix == "" {
		t.Storage.RedisPrefix = d.Storage.RedisPrefix
	}
	if t.Storage.RedisTimeoutMs <= 0 {
		t.Storage.RedisTimeoutMs = d.Storage.RedisTimeoutMs
	}
	sa := t.StartingParams()
	t.StartingArea = StartingArea{
		ChunkRadius:    sa.ChunkRadius,
		TileRadius:     sa.TileRadius,
		LandMin:        sa.LandMin,
		LandMax:        sa.LandMax,
		AcceptPermille: sa.AcceptPermille,
		FeaturesMin:    sa.FeaturesMin,
		FeaturesMax:    sa.FeaturesMax,
		TreeWeight:     sa.TreeWeight,
		LootWeight:     sa.LootWeight,
		BoulderWeight:  sa.BoulderWeight,
		MinOriginLand:  sa.MinOriginLand,
	}
}

func (i Island) params() gen.IslandParams {
	return gen.IslandParams{
		LandPermille:    i.LandPermille,
		MinMass:         i.MinMass,
		MaxMass:         i.MaxMass,
		TreePermille:    i.TreePermille,
		LootPermille:    i.LootPermille,
		BoulderPermille: i.BoulderPermille,
	}
}

// Registry builds the biome generators from the configured parameters.
func (t Tuning) Registry() *gen.Registry {
	sparse := gen.NewIslandGenerator("sparse", t.Generators.Sparse.params())
	return &gen.Registry{
		Rocky:    gen.NewIslandGenerator("rocky", t.Generators.Rocky.params()),
		Forested: gen.NewIslandGenerator("forested", t.Generators.Forested.params()),
		Sparse:   sparse,
		Starting: sparse,
	}
}

func (t Tuning) StartingParams() gen.StartingAreaParams {
	sa := t.StartingArea
	return gen.StartingAreaParams{
		ChunkRadius:    sa.ChunkRadius,
		TileRadius:     sa.TileRadius,
		LandMin:        sa.LandMin,
		LandMax:        sa.LandMax,
		AcceptPermille: sa.AcceptPermille,
		FeaturesMin:    sa.FeaturesMin,
		FeaturesMax:    sa.FeaturesMax,
		TreeWeight:     sa.TreeWeight,
		LootWeight:     sa.LootWeight,
		BoulderWeight:  sa.BoulderWeight,
		MinOriginLand:  sa.MinOriginLand,
	}.Normalized()
}

// AutosaveEvery is zero when autosave is disabled.
func (t Tuning) AutosaveEvery() time.Duration {
	return time.Duration(t.AutosaveEveryMs) * time.Millisecond
}

// ManageEvery is how often resident chunks outside the view are trimmed.
func (t Tuning) ManageEvery() time.Duration {
	return time.Duration(t.ManageEveryMs) * time.Millisecond
}

func (t Tuning) RedisTimeout() time.Duration {
	return time.Duration(t.Storage.RedisTimeoutMs) * time.Millisecond
}
