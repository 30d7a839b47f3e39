// Package viewport keeps the chunks around a moving viewer resident and
// evicts the rest.
package viewport

import (
	"errors"

	"islecraft.ai/internal/sim/world/terrain/store"
)

// Residency is the part of the chunk store the manager drives.
type Residency interface {
	WorldToChunk(x, y int) (int, int)
	EnsureResident(cx, cy int)
	Evict(cx, cy int) error
	ResidentKeys() []store.ChunkKey
}

type Manager struct {
	res    Residency
	radius int

	center store.ChunkKey
	placed bool
}

// New keeps every chunk within viewChunks/2 of the viewer's chunk resident.
func New(res Residency, viewChunks int) *Manager {
	if viewChunks < 1 {
		viewChunks = 1
	}
	return &Manager{res: res, radius: viewChunks / 2}
}

// Center reports the viewer's chunk and whether a viewer was ever placed.
func (m *Manager) Center() (store.ChunkKey, bool) { return m.center, m.placed }

// SetViewer records the viewer's chunk without touching residency.
func (m *Manager) SetViewer(x, y int) {
	cx, cy := m.res.WorldToChunk(x, y)
	m.center = store.ChunkKey{CX: cx, CY: cy}
	m.placed = true
}

// Update moves the viewer and, if it crossed into another chunk, runs
// Manage. It reports whether the window changed.
func (m *Manager) Update(x, y int) (bool, error) {
	cx, cy := m.res.WorldToChunk(x, y)
	next := store.ChunkKey{CX: cx, CY: cy}
	if m.placed && next == m.center {
		return false, nil
	}
	m.center = next
	m.placed = true
	return true, m.Manage()
}

func (m *Manager) InWindow(k store.ChunkKey) bool {
	dx, dy := k.CX-m.center.CX, k.CY-m.center.CY
	return dx >= -m.radius && dx <= m.radius && dy >= -m.radius && dy <= m.radius
}

// Window lists the chunks that should be resident, row by row.
func (m *Manager) Window() []store.ChunkKey {
	out := make([]store.ChunkKey, 0, (2*m.radius+1)*(2*m.radius+1))
	for dy := -m.radius; dy <= m.radius; dy++ {
		for dx := -m.radius; dx <= m.radius; dx++ {
			out = append(out, store.ChunkKey{CX: m.center.CX + dx, CY: m.center.CY + dy})
		}
	}
	return out
}

// Manage makes the window resident and evicts every chunk outside it.
// Eviction failures do not stop the pass; they are joined and returned.
func (m *Manager) Manage() error {
	for _, k := range m.Window() {
		m.res.EnsureResident(k.CX, k.CY)
	}
	var errs []error
	for _, k := range m.res.ResidentKeys() {
		if m.InWindow(k) {
			continue
		}
		if err := m.res.Evict(k.CX, k.CY); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
