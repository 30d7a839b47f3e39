package world

import "islecraft.ai/internal/sim/world/terrain/store"

// WorldMetrics is a read-only view of the world loop, safe to read from any
// goroutine. It is republished every tick and after each save.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Center        store.ChunkKey `json:"center"`
	ResidentKeys  int            `json:"resident_chunks"`
	Store         store.Stats    `json:"store"`
	TileCounts    map[string]int `json:"tile_counts"`
	Autosaves     uint64         `json:"autosaves"`
	LastSaveMS    float64        `json:"last_save_ms"`
	LastSaveError string         `json:"last_save_error,omitempty"`
	Manages       uint64         `json:"manages"`
	LastManageErr string         `json:"last_manage_error,omitempty"`

	QueueDepths QueueDepths `json:"queue_depths"`
}

type QueueDepths struct {
	Rect int `json:"rect"`
	Set  int `json:"set"`
	Move int `json:"move"`
	Save int `json:"save"`
}

func (w *World) publishMetrics() {
	center, _ := w.view.Center()
	st := w.store.Stats()
	w.metrics.Store(WorldMetrics{
		Tick:          w.tick.Load(),
		Center:        center,
		ResidentKeys:  st.Resident,
		Store:         st,
		TileCounts:    w.tileCounts(),
		Autosaves:     w.autosaves,
		LastSaveMS:    w.lastSaveMS,
		LastSaveError: w.lastSaveErr,
		Manages:       w.manages,
		LastManageErr: w.manageErr,
		QueueDepths: QueueDepths{
			Rect: len(w.rectReq),
			Set:  len(w.setReq),
			Move: len(w.moveReq),
			Save: len(w.saveReq),
		},
	})
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
