package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(w.cfg.TickRateHz))
	defer ticker.Stop()

	var autosave <-chan time.Time
	if w.cfg.AutosaveEvery > 0 {
		t := time.NewTicker(w.cfg.AutosaveEvery)
		defer t.Stop()
		autosave = t.C
	}

	manage := time.NewTicker(w.cfg.ManageEvery)
	defer manage.Stop()

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return ctx.Err()
		case <-w.stop:
			w.shutdown()
			return nil
		case r := <-w.rectReq:
			w.handleRect(r)
		case r := <-w.setReq:
			w.handleSet(r)
		case r := <-w.moveReq:
			w.handleMove(r)
		case r := <-w.saveReq:
			w.handleSave(r)
		case <-autosave:
			if _, err := w.saveDirty(); err == nil {
				w.autosaves++
			}
		case <-manage.C:
			w.manage()
		case <-ticker.C:
			w.tick.Add(1)
			w.publishMetrics()
		}
	}
}

func (w *World) saveDirty() (SaveResult, error) {
	before := len(w.store.DirtyKeys())
	start := time.Now()
	err := w.store.SaveDirty()
	w.lastSaveMS = float64(time.Since(start).Microseconds()) / 1000
	after := len(w.store.DirtyKeys())
	if err != nil {
		w.lastSaveErr = err.Error()
		w.logger.Printf("save: %d of %d dirty chunks failed: %v", after, before, err)
	} else {
		w.lastSaveErr = ""
	}
	w.publishMetrics()
	return SaveResult{Saved: before - after, StillDirty: after}, err
}

// manage recomputes residency around the viewer's current chunk, evicting
// whatever ReadRect and SetTile pulled in elsewhere.
func (w *World) manage() {
	before := len(w.store.ResidentKeys())
	err := w.view.Manage()
	w.manages++
	if err != nil {
		w.manageErr = err.Error()
		w.logger.Printf("manage: %v", err)
	} else {
		w.manageErr = ""
	}
	if after := len(w.store.ResidentKeys()); after < before {
		w.logger.Printf("manage: trimmed %d chunks (%d resident)", before-after, after)
	}
	w.publishMetrics()
}

func (w *World) shutdown() {
	res, err := w.saveDirty()
	if err != nil {
		w.logger.Printf("shutdown save incomplete: saved=%d still dirty=%d", res.Saved, res.StillDirty)
		return
	}
	w.logger.Printf("shutdown save: %d chunks", res.Saved)
}
