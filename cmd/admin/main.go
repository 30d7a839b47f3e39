package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"islecraft.ai/internal/persistence"
	"islecraft.ai/internal/sim/tuning"
	"islecraft.ai/internal/sim/world/terrain/store"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "clear":
		err = clearCmd(args, os.Stdout)
	case "dump":
		err = dumpCmd(args, os.Stdout)
	case "inspect":
		err = inspectCmd(args, os.Stdout)
	case "events":
		err = eventsCmd(args, os.Stdout)
	case "state":
		err = stateCmd(args, os.Stdout)
	case "save":
		err = saveCmd(args, os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: admin <clear|dump|inspect|events|state|save> [flags]")
}

type storageFlags struct {
	tuningPath *string
	dataDir    *string
	backend    *string
}

func addStorageFlags(fs *flag.FlagSet) storageFlags {
	return storageFlags{
		tuningPath: fs.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml"),
		dataDir:    fs.String("data", "./data", "runtime data directory"),
		backend:    fs.String("backend", "", "override storage backend (file|sqlite|redis)"),
	}
}

func (f storageFlags) open() (*persistence.Opened, tuning.Tuning, error) {
	t, err := tuning.Load(*f.tuningPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, t, err
		}
		t = tuning.Defaults()
	}
	if b := strings.TrimSpace(*f.backend); b != "" {
		t.Storage.Backend = strings.ToLower(b)
	}
	if t.Storage.Backend == tuning.BackendMemory {
		return nil, t, fmt.Errorf("memory backend has nothing to administer")
	}
	o, err := persistence.Open(t, *f.dataDir)
	return o, t, err
}

func clearCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	sf := addStorageFlags(fs)
	yes := fs.Bool("yes", false, "confirm deleting every stored chunk")
	_ = fs.Parse(args)

	if !*yes {
		return fmt.Errorf("refusing to clear without -yes")
	}
	o, _, err := sf.open()
	if err != nil {
		return err
	}
	defer o.Close()
	if err := o.Backend.ClearAll(); err != nil {
		return err
	}
	fmt.Fprintf(out, "cleared backend=%s\n", o.Name)
	return nil
}

func dumpCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	sf := addStorageFlags(fs)
	cx := fs.Int("cx", 0, "chunk x")
	cy := fs.Int("cy", 0, "chunk y")
	asJSON := fs.Bool("json", false, "print tile names as JSON rows")
	_ = fs.Parse(args)

	o, t, err := sf.open()
	if err != nil {
		return err
	}
	defer o.Close()
	tiles, ok, err := o.Backend.LoadChunk(*cx, *cy, t.ChunkSize)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("chunk (%d,%d) not stored", *cx, *cy)
	}
	return writeChunk(out, store.NewChunk(*cx, *cy, t.ChunkSize, tiles), *asJSON)
}

var glyphs = map[tile.Tile]byte{
	tile.Water:   '~',
	tile.Land:    '.',
	tile.Tree:    'T',
	tile.Sapling: 't',
	tile.Wall:    '#',
	tile.Boulder: 'o',
	tile.Loot:    '$',
	tile.Wood:    'w',
	tile.Metal:   'm',
}

func glyph(t tile.Tile) byte {
	if g, ok := glyphs[t]; ok {
		return g
	}
	return '?'
}

func writeChunk(out io.Writer, c *store.Chunk, asJSON bool) error {
	if asJSON {
		rows := make([][]tile.Tile, c.Size)
		for ty := 0; ty < c.Size; ty++ {
			rows[ty] = c.Tiles[ty*c.Size : (ty+1)*c.Size]
		}
		enc := json.NewEncoder(out)
		return enc.Encode(struct {
			CX   int           `json:"cx"`
			CY   int           `json:"cy"`
			Rows [][]tile.Tile `json:"rows"`
		}{c.CX, c.CY, rows})
	}
	fmt.Fprintf(out, "chunk (%d,%d) size=%d\n", c.CX, c.CY, c.Size)
	line := make([]byte, c.Size)
	for ty := 0; ty < c.Size; ty++ {
		for tx := 0; tx < c.Size; tx++ {
			line[tx] = glyph(c.Get(tx, ty))
		}
		fmt.Fprintf(out, "%s\n", line)
	}
	return nil
}

type keyLister interface {
	Keys() ([][2]int, error)
}

type chunkSummary struct {
	CX      int            `json:"cx"`
	CY      int            `json:"cy"`
	Land    int            `json:"land"`
	Tracked map[string]int `json:"tracked"`
	Digest  string         `json:"digest"`
	Error   string         `json:"error,omitempty"`
}

func inspectCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	sf := addStorageFlags(fs)
	_ = fs.Parse(args)

	o, t, err := sf.open()
	if err != nil {
		return err
	}
	defer o.Close()
	kl, ok := o.Backend.(keyLister)
	if !ok {
		return fmt.Errorf("backend %s cannot list chunks", o.Name)
	}
	keys, err := kl.Keys()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, k := range keys {
		if err := enc.Encode(summarize(o.Backend, k[0], k[1], t.ChunkSize)); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "backend=%s chunks=%d\n", o.Name, len(keys))
	return nil
}

func summarize(b store.Backend, cx, cy, size int) chunkSummary {
	s := chunkSummary{CX: cx, CY: cy}
	tiles, ok, err := b.LoadChunk(cx, cy, size)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	if !ok {
		s.Error = "missing"
		return s
	}
	c := store.NewChunk(cx, cy, size, tiles)
	for _, v := range c.Tiles {
		if v.IsLand() {
			s.Land++
		}
	}
	s.Tracked = map[string]int{}
	for k, n := range c.Counts() {
		s.Tracked[k.String()] = n
	}
	d := c.Digest()
	s.Digest = hex.EncodeToString(d[:8])
	return s
}
