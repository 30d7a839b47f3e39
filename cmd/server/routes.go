package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"islecraft.ai/internal/sim/world"
	"islecraft.ai/internal/transport/observer"
)

type routes struct {
	world    *world.World
	registry *prometheus.Registry
	observer *observer.Server
	backend  string
	logger   *log.Logger

	admin bool
	pprof bool
}

func (rt routes) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/v1/observe/bootstrap", rt.observer.BootstrapHandler())
	mux.HandleFunc("/v1/observe", rt.observer.WSHandler())

	if rt.admin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", rt.handleState)
		mux.HandleFunc("/admin/v1/save", rt.handleSave)
	} else {
		rt.logger.Printf("admin endpoints disabled (ISLECRAFT_ENABLE_ADMIN_HTTP=false)")
	}
	if rt.pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func (rt routes) handleState(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	resp := struct {
		Backend  string             `json:"backend"`
		Sessions int64              `json:"observer_sessions"`
		Metrics  world.WorldMetrics `json:"metrics"`
	}{
		Backend:  rt.backend,
		Sessions: rt.observer.Sessions(),
		Metrics:  rt.world.Metrics(),
	}
	_ = json.NewEncoder(rw).Encode(resp)
}

func (rt routes) handleSave(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	res, err := rt.world.Save(ctx)
	rw.Header().Set("Content-Type", "application/json")
	if err != nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "saved": res.Saved, "still_dirty": res.StillDirty, "error": err.Error()})
		return
	}
	_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "saved": res.Saved, "still_dirty": res.StillDirty})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
