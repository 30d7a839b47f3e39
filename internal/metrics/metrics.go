// Package metrics exports world and storage counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"islecraft.ai/internal/persistence/indexdb"
	"islecraft.ai/internal/sim/world"
)

const namespace = "islecraft"

// EventStatser is implemented by backends that index chunk events.
type EventStatser interface {
	EventStats() indexdb.EventStats
}

// Collector reads the world's published metrics at scrape time, so scrapes
// never touch the world loop.
type Collector struct {
	world  func() world.WorldMetrics
	events EventStatser

	tick       *prometheus.Desc
	resident   *prometheus.Desc
	dirty      *prometheus.Desc
	chunkOps   *prometheus.Desc
	cacheLen   *prometheus.Desc
	cacheCap   *prometheus.Desc
	cacheOps   *prometheus.Desc
	tileCount  *prometheus.Desc
	autosaves  *prometheus.Desc
	manages    *prometheus.Desc
	saveMS     *prometheus.Desc
	queueDepth *prometheus.Desc
	eventsOut  *prometheus.Desc
	eventsDrop *prometheus.Desc
}

// NewCollector builds a collector over src. events may be nil.
func NewCollector(src func() world.WorldMetrics, events EventStatser) *Collector {
	d := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		world:      src,
		events:     events,
		tick:       d("world_tick", "Current world tick."),
		resident:   d("chunks_resident", "Chunks held in memory."),
		dirty:      d("chunks_dirty", "Resident chunks with unsaved changes."),
		chunkOps:   d("chunk_ops_total", "Chunk lifecycle operations by kind.", "op"),
		cacheLen:   d("tile_cache_entries", "Entries in the tile cache."),
		cacheCap:   d("tile_cache_capacity", "Tile cache capacity."),
		cacheOps:   d("tile_cache_ops_total", "Tile cache lookups and evictions.", "result"),
		tileCount:  d("tracked_tiles", "Placed tiles of tracked kinds.", "tile"),
		autosaves:  d("autosaves_total", "Completed autosave passes."),
		manages:    d("residency_passes_total", "Periodic passes trimming chunks outside the view window."),
		saveMS:     d("last_save_milliseconds", "Duration of the last save pass."),
		queueDepth: d("request_queue_depth", "Pending requests per world queue.", "queue"),
		eventsOut:  d("chunk_events_written_total", "Chunk events written to the index."),
		eventsDrop: d("chunk_events_dropped_total", "Chunk events dropped because the index writer fell behind."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.tick, c.resident, c.dirty, c.chunkOps, c.cacheLen, c.cacheCap, c.cacheOps,
		c.tileCount, c.autosaves, c.manages, c.saveMS, c.queueDepth, c.eventsOut, c.eventsDrop,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.world()
	st := m.Store

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, labels...)
	}

	gauge(c.tick, float64(m.Tick))
	gauge(c.resident, float64(st.Resident))
	gauge(c.dirty, float64(st.Dirty))
	counter(c.chunkOps, float64(st.Generated), "generate")
	counter(c.chunkOps, float64(st.Loaded), "load")
	counter(c.chunkOps, float64(st.Saved), "save")
	counter(c.chunkOps, float64(st.Evicted), "evict")
	counter(c.chunkOps, float64(st.LoadErrors), "load_error")
	counter(c.chunkOps, float64(st.SaveErrors), "save_error")
	gauge(c.cacheLen, float64(st.Cache.Len))
	gauge(c.cacheCap, float64(st.Cache.Capacity))
	counter(c.cacheOps, float64(st.Cache.Hits), "hit")
	counter(c.cacheOps, float64(st.Cache.Misses), "miss")
	counter(c.cacheOps, float64(st.Cache.Evictions), "evict")
	for name, n := range m.TileCounts {
		gauge(c.tileCount, float64(n), name)
	}
	counter(c.autosaves, float64(m.Autosaves))
	counter(c.manages, float64(m.Manages))
	gauge(c.saveMS, m.LastSaveMS)
	gauge(c.queueDepth, float64(m.QueueDepths.Rect), "rect")
	gauge(c.queueDepth, float64(m.QueueDepths.Set), "set")
	gauge(c.queueDepth, float64(m.QueueDepths.Move), "move")
	gauge(c.queueDepth, float64(m.QueueDepths.Save), "save")

	if c.events != nil {
		es := c.events.EventStats()
		counter(c.eventsOut, float64(es.Written))
		counter(c.eventsDrop, float64(es.Dropped))
	}
}

// NewRegistry returns a registry with the runtime collectors and c.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c,
	)
	return reg
}
