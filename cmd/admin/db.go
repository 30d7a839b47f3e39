package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"islecraft.ai/internal/persistence/indexdb"
)

// eventsCmd prints the most recent lifecycle events for one chunk from the
// sqlite event index.
func eventsCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	sf := addStorageFlags(fs)
	cx := fs.Int("cx", 0, "chunk x")
	cy := fs.Int("cy", 0, "chunk y")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	o, _, err := sf.open()
	if err != nil {
		return err
	}
	defer o.Close()
	db, ok := o.Backend.(*indexdb.SQLite)
	if !ok {
		return fmt.Errorf("events need the sqlite backend (have %s)", o.Name)
	}
	if *limit <= 0 {
		*limit = 20
	}
	evs, err := db.RecentEvents(*cx, *cy, *limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, e := range evs {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
