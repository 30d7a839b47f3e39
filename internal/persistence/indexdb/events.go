package indexdb

import (
	"context"
	"database/sql"
	"time"
)

type eventRow struct {
	At   string
	Kind string
	CX   int
	CY   int
	Err  string
}

type EventStats struct {
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

// ChunkEvent queues a lifecycle event. It never blocks; events are dropped
// when the writer falls behind.
func (s *SQLite) ChunkEvent(kind string, cx, cy int, err error) {
	if s == nil || s.closed.Load() {
		return
	}
	r := eventRow{
		At:   time.Now().UTC().Format(time.RFC3339Nano),
		Kind: kind,
		CX:   cx,
		CY:   cy,
	}
	if err != nil {
		r.Err = err.Error()
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLite) EventStats() EventStats {
	return EventStats{
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

type Event struct {
	At   string `json:"at"`
	Kind string `json:"kind"`
	CX   int    `json:"cx"`
	CY   int    `json:"cy"`
	Err  string `json:"error,omitempty"`
}

// RecentEvents returns up to limit events for a chunk, newest first.
func (s *SQLite) RecentEvents(cx, cy, limit int) ([]Event, error) {
	rows, err := s.db.Query(`SELECT at, kind, cx, cy, COALESCE(error, '') FROM chunk_events
	WHERE cx = ? AND cy = ? ORDER BY id DESC LIMIT ?`, cx, cy, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.At, &e.Kind, &e.CX, &e.CY, &e.Err); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) loop() {
	ctx := context.Background()

	insert, _ := s.db.Prepare(`INSERT INTO chunk_events(at, kind, cx, cy, error) VALUES(?, ?, ?, ?, NULLIF(?, ''))`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err == nil {
			s.written.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if insert == nil {
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		if _, err := tx.Stmt(insert).Exec(r.At, r.Kind, r.CX, r.CY, r.Err); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
