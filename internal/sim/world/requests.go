package world

import (
	"context"
	"errors"
	"fmt"

	"islecraft.ai/internal/sim/world/terrain/store"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

var ErrStopped = errors.New("world stopped")

type rectReq struct {
	X, Y, W, H int
	Resp       chan rectResp
}

type rectResp struct {
	Tiles []tile.Tile
	Err   error
}

type setReq struct {
	X, Y int
	Tile tile.Tile
	Resp chan error
}

// MoveResult describes an applied move. EvictError is set when chunks
// leaving the window could not be saved; they stay resident and dirty.
type MoveResult struct {
	Center     store.ChunkKey `json:"center"`
	Changed    bool           `json:"changed"`
	Resident   int            `json:"resident"`
	EvictError string         `json:"evict_error,omitempty"`
}

type moveReq struct {
	X, Y int
	Resp chan moveResp
}

type moveResp struct {
	Result MoveResult
}

type SaveResult struct {
	Saved      int `json:"saved"`
	StillDirty int `json:"still_dirty"`
}

type saveReq struct {
	Resp chan saveResp
}

type saveResp struct {
	Result SaveResult
	Err    error
}

// call sends req on ch and waits for the loop to answer on resp.
func call[Req, Resp any](ctx context.Context, w *World, ch chan Req, req Req, resp chan Resp) (Resp, error) {
	var zero Resp
	select {
	case ch <- req:
	case <-w.stop:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-w.stop:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ReadRect returns the w*h tiles starting at (x, y), row-major. It is safe
// to call from any goroutine.
func (w *World) ReadRect(ctx context.Context, x, y, width, height int) ([]tile.Tile, error) {
	if width <= 0 || height <= 0 || width > w.cfg.MaxRect || height > w.cfg.MaxRect {
		return nil, fmt.Errorf("rect %dx%d outside 1..%d", width, height, w.cfg.MaxRect)
	}
	resp := make(chan rectResp, 1)
	r, err := call(ctx, w, w.rectReq, rectReq{X: x, Y: y, W: width, H: height, Resp: resp}, resp)
	if err != nil {
		return nil, err
	}
	return r.Tiles, r.Err
}

func (w *World) SetTile(ctx context.Context, x, y int, t tile.Tile) error {
	if !t.Valid() {
		return fmt.Errorf("invalid tile %d", uint8(t))
	}
	resp := make(chan error, 1)
	r, err := call(ctx, w, w.setReq, setReq{X: x, Y: y, Tile: t, Resp: resp}, resp)
	if err != nil {
		return err
	}
	return r
}

// MoveViewer places the viewer at (x, y) and updates residency if it crossed
// a chunk boundary. An error means the move was not applied.
func (w *World) MoveViewer(ctx context.Context, x, y int) (MoveResult, error) {
	resp := make(chan moveResp, 1)
	r, err := call(ctx, w, w.moveReq, moveReq{X: x, Y: y, Resp: resp}, resp)
	if err != nil {
		return MoveResult{}, err
	}
	return r.Result, nil
}

// Save flushes every dirty chunk.
func (w *World) Save(ctx context.Context) (SaveResult, error) {
	resp := make(chan saveResp, 1)
	r, err := call(ctx, w, w.saveReq, saveReq{Resp: resp}, resp)
	if err != nil {
		return SaveResult{}, err
	}
	return r.Result, r.Err
}

func (w *World) handleRect(r rectReq) {
	r.Resp <- rectResp{Tiles: w.store.ReadRect(r.X, r.Y, r.W, r.H)}
}

func (w *World) handleSet(r setReq) {
	w.store.SetTile(r.X, r.Y, r.Tile)
	r.Resp <- nil
}

func (w *World) handleMove(r moveReq) {
	changed, err := w.view.Update(r.X, r.Y)
	center, _ := w.view.Center()
	res := MoveResult{Center: center, Changed: changed, Resident: len(w.store.ResidentKeys())}
	if err != nil {
		w.logger.Printf("move to (%d,%d): %v", r.X, r.Y, err)
		res.EvictError = err.Error()
	}
	r.Resp <- moveResp{Result: res}
}

func (w *World) handleSave(r saveReq) {
	res, err := w.saveDirty()
	r.Resp <- saveResp{Result: res, Err: err}
}
