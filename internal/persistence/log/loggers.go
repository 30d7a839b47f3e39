package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const hourLayout = "2006-01-02-15"

// JSONLZstdWriter appends JSON lines to zstd files rotated every UTC hour:
// <baseDir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	now func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Each rotation appends a new zstd frame, so reopening an hour file after
	// a restart keeps it decodable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return errors.Join(err, f.Close())
	}
	w.f, w.enc = f, enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

// closeLocked finishes the current frame. The hour is forgotten so the next
// Write reopens the file.
func (w *JSONLZstdWriter) closeLocked() error {
	if w.f == nil {
		return nil
	}
	err := errors.Join(w.w.Flush(), w.enc.Close(), w.f.Close())
	w.f, w.enc, w.w = nil, nil, nil
	w.curHour = ""
	return err
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ChunkEntry is one chunk lifecycle record.
type ChunkEntry struct {
	At    string `json:"at"`
	Kind  string `json:"kind"`
	CX    int    `json:"cx"`
	CY    int    `json:"cy"`
	Error string `json:"error,omitempty"`
}

// ChunkLogger writes chunk lifecycle events as compressed JSONL.
type ChunkLogger struct {
	w      *JSONLZstdWriter
	failed func(error)
}

func NewChunkLogger(dataDir string) *ChunkLogger {
	return &ChunkLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "chunks")}
}

// OnError registers a callback for write failures; ChunkEvent itself has no
// error return.
func (l *ChunkLogger) OnError(fn func(error)) { l.failed = fn }

func (l *ChunkLogger) ChunkEvent(kind string, cx, cy int, err error) {
	e := ChunkEntry{
		At:   time.Now().UTC().Format(time.RFC3339Nano),
		Kind: kind,
		CX:   cx,
		CY:   cy,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if werr := l.w.Write(e); werr != nil && l.failed != nil {
		l.failed(werr)
	}
}

func (l *ChunkLogger) Close() error { return l.w.Close() }
