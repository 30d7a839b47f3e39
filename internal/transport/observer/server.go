package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"islecraft.ai/internal/observerproto"
	"islecraft.ai/internal/sim/encoding"
	"islecraft.ai/internal/sim/world"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

type Server struct {
	world *world.World
	log   *log.Logger

	// AllowRemote lifts the loopback-only restriction.
	AllowRemote bool
	// ReadOnly rejects SET messages.
	ReadOnly bool

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.world.Config()
		m := s.world.Metrics()
		palette := make([]string, 0, len(tile.All()))
		for _, t := range tile.All() {
			palette = append(palette, t.String())
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Tick:            m.Tick,
			WorldParams: observerproto.WorldParams{
				ChunkSize:  cfg.ChunkSize,
				ViewChunks: cfg.ViewChunks,
				TickRateHz: cfg.TickRateHz,
				Seed:       cfg.Seed,
				MaxRect:    cfg.MaxRect,
			},
			TilePalette: palette,
			TileCounts:  m.TileCounts,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 64)

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handle(ctx, msg)
			b, err := json.Marshal(reply)
			if err != nil {
				s.log.Printf("observer: marshal reply: %v", err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func errorMsg(msg string) observerproto.ErrorMsg {
	return observerproto.ErrorMsg{Type: observerproto.TypeError, Message: msg}
}

func (s *Server) handle(ctx context.Context, raw []byte) any {
	var env observerproto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errorMsg("bad json: " + err.Error())
	}
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch env.Type {
	case observerproto.TypeView:
		var m observerproto.ViewMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errorMsg("bad VIEW: " + err.Error())
		}
		tiles, err := s.world.ReadRect(reqCtx, m.X, m.Y, m.W, m.H)
		if err != nil {
			return errorMsg(err.Error())
		}
		return tilesMsg(m, tiles)

	case observerproto.TypeMove:
		var m observerproto.MoveMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errorMsg("bad MOVE: " + err.Error())
		}
		res, err := s.world.MoveViewer(reqCtx, m.X, m.Y)
		if err != nil {
			return errorMsg(err.Error())
		}
		return observerproto.MovedMsg{
			Type:       observerproto.TypeMoved,
			CX:         res.Center.CX,
			CY:         res.Center.CY,
			Changed:    res.Changed,
			Resident:   res.Resident,
			EvictError: res.EvictError,
		}

	case observerproto.TypeSet:
		if s.ReadOnly {
			return errorMsg("read-only observer")
		}
		var m observerproto.SetMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errorMsg("bad SET: " + err.Error())
		}
		t, err := tile.Parse(m.Tile)
		if err != nil {
			return errorMsg(err.Error())
		}
		if err := s.world.SetTile(reqCtx, m.X, m.Y, t); err != nil {
			return errorMsg(err.Error())
		}
		return observerproto.AckMsg{Type: observerproto.TypeAck, X: m.X, Y: m.Y, Tile: t.String()}

	default:
		return errorMsg("unknown message type " + strings.TrimSpace(env.Type))
	}
}

func tilesMsg(req observerproto.ViewMsg, tiles []tile.Tile) observerproto.TilesMsg {
	out := observerproto.TilesMsg{
		Type: observerproto.TypeTiles,
		X:    req.X,
		Y:    req.Y,
		W:    req.W,
		H:    req.H,
	}
	if strings.EqualFold(req.Encoding, observerproto.EncodingList) {
		out.Encoding = observerproto.EncodingList
		out.Tiles = make([]int, len(tiles))
		for i, t := range tiles {
			out.Tiles[i] = int(t)
		}
		return out
	}
	ids := make([]uint16, len(tiles))
	for i, t := range tiles {
		ids[i] = uint16(t)
	}
	out.Encoding = observerproto.EncodingRLE
	out.RLE = encoding.EncodeRLE(ids)
	return out
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
