package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"islecraft.ai/internal/metrics"
	"islecraft.ai/internal/persistence"
	persistlog "islecraft.ai/internal/persistence/log"
	"islecraft.ai/internal/sim/tuning"
	"islecraft.ai/internal/sim/world"
	"islecraft.ai/internal/sim/world/terrain/store"
	"islecraft.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (empty: built-in defaults)")
		fresh      = flag.Bool("fresh", false, "wipe stored chunks and grow a new starting area; without it a restart keeps every stored chunk")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	penv, err := loadEnv(logger)
	if err != nil {
		logger.Fatalf("env: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if tune, err = penv.apply(tune); err != nil {
		logger.Fatalf("tuning overrides: %v", err)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	opened, err := persistence.Open(tune, *dataDir)
	if err != nil {
		logger.Fatalf("open storage: %v", err)
	}
	defer opened.Close()
	logger.Printf("storage backend=%s data=%s", opened.Name, filepath.Clean(*dataDir))

	sinks := multiEventSink{opened.EventSink()}
	if penv.EventLog {
		chunkLog := persistlog.NewChunkLogger(*dataDir)
		chunkLog.OnError(func(err error) { logger.Printf("chunk event log: %v", err) })
		defer chunkLog.Close()
		sinks = append(sinks, chunkLog)
	}

	w := world.New(world.ConfigFromTuning(tune), world.Options{
		Backend: opened.Backend,
		Events:  sinks,
		Logger:  logger,
	})
	if err := w.Init(*fresh); err != nil {
		logger.Fatalf("init world: %v", err)
	}

	var eventStats metrics.EventStatser
	if es, ok := opened.Backend.(metrics.EventStatser); ok {
		eventStats = es
	}
	obs := observer.NewServer(w, logger)
	obs.AllowRemote = penv.RemoteObserver
	obs.ReadOnly = penv.ReadOnlyObserve

	rt := routes{
		world:    w,
		registry: metrics.NewRegistry(metrics.NewCollector(w.Metrics, eventStats)),
		observer: obs,
		backend:  opened.Name,
		logger:   logger,
		admin:    penv.adminEnabled(),
		pprof:    penv.EnablePprofHTTP,
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           rt.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("server stopped: %v", err)
	}
	m := w.Metrics()
	logger.Printf("bye: tick=%d saved=%d resident=%d dirty=%d", m.Tick, m.Store.Saved, m.Store.Resident, m.Store.Dirty)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// multiEventSink fans chunk events out to every non-nil sink.
type multiEventSink []store.EventSink

func (m multiEventSink) ChunkEvent(kind string, cx, cy int, err error) {
	for _, s := range m {
		if s != nil {
			s.ChunkEvent(kind, cx, cy, err)
		}
	}
}
