package main

import (
	"log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"islecraft.ai/internal/sim/tuning"
)

// serverEnv holds process settings that are not part of tuning.yaml, plus a
// few storage overrides for deployments that cannot edit the file.
type serverEnv struct {
	DeployEnv string `env:"DEPLOY_ENV" envDefault:"dev"`

	EnableAdminHTTP *bool `env:"ISLECRAFT_ENABLE_ADMIN_HTTP"`
	EnablePprofHTTP bool  `env:"ISLECRAFT_ENABLE_PPROF_HTTP" envDefault:"false"`
	RemoteObserver  bool  `env:"ISLECRAFT_REMOTE_OBSERVER" envDefault:"false"`
	ReadOnlyObserve bool  `env:"ISLECRAFT_OBSERVER_READ_ONLY" envDefault:"false"`
	EventLog        bool  `env:"ISLECRAFT_EVENT_LOG" envDefault:"true"`

	StorageBackend string `env:"ISLECRAFT_STORAGE_BACKEND"`
	RedisAddr      string `env:"ISLECRAFT_REDIS_ADDR"`
	RedisPrefix    string `env:"ISLECRAFT_REDIS_PREFIX"`
	Seed           *int64 `env:"ISLECRAFT_SEED"`
}

func loadEnv(logger *log.Logger) (serverEnv, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("NOTICE: .env not loaded: %v", err)
	}
	return env.ParseAs[serverEnv]()
}

// adminEnabled defaults to off in staging and production.
func (e serverEnv) adminEnabled() bool {
	if e.EnableAdminHTTP != nil {
		return *e.EnableAdminHTTP
	}
	switch strings.ToLower(strings.TrimSpace(e.DeployEnv)) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// apply overlays env overrides on t and re-validates the result.
func (e serverEnv) apply(t tuning.Tuning) (tuning.Tuning, error) {
	if v := strings.TrimSpace(e.StorageBackend); v != "" {
		t.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(e.RedisAddr); v != "" {
		t.Storage.RedisAddr = v
	}
	if v := strings.TrimSpace(e.RedisPrefix); v != "" {
		t.Storage.RedisPrefix = v
	}
	if e.Seed != nil {
		t.Seed = *e.Seed
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	t.Normalize()
	return t, nil
}
