// Package tile defines the closed set of values a world cell can hold.
//
// The numeric tags are persisted in chunk files and must never be reordered.
package tile

import (
	"fmt"
	"strings"
)

type Tile uint8

const (
	Water Tile = iota
	Land
	Tree
	Sapling
	Wall
	Turret
	Boat
	UsedLand
	Loot
	BoatStage2
	BoatStage3
	Boulder
	Fish
	SteeringWheel
	Wood
	Metal
	Hat
	Torch

	count
)

var names = [count]string{
	Water:         "WATER",
	Land:          "LAND",
	Tree:          "TREE",
	Sapling:       "SAPLING",
	Wall:          "WALL",
	Turret:        "TURRET",
	Boat:          "BOAT",
	UsedLand:      "USED_LAND",
	Loot:          "LOOT",
	BoatStage2:    "BOAT_STAGE_2",
	BoatStage3:    "BOAT_STAGE_3",
	Boulder:       "BOULDER",
	Fish:          "FISH",
	SteeringWheel: "STEERING_WHEEL",
	Wood:          "WOOD",
	Metal:         "METAL",
	Hat:           "HAT",
	Torch:         "TORCH",
}

// Tracked lists the kinds whose placement counts are maintained by the store.
var Tracked = []Tile{Wood, Metal}

func (t Tile) Valid() bool { return t < count }

func (t Tile) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TILE(%d)", uint8(t))
	}
	return names[t]
}

func (t Tile) IsTracked() bool {
	for _, k := range Tracked {
		if k == t {
			return true
		}
	}
	return false
}

// IsWalkable reports whether a land-bound entity may stand on t.
func (t Tile) IsWalkable() bool {
	switch t {
	case Boat, BoatStage2, BoatStage3, Land, UsedLand, Loot, Sapling, Turret, Boulder, SteeringWheel:
		return true
	}
	return false
}

// IsLand reports whether t counts as solid ground (walkable tiles plus trees).
func (t Tile) IsLand() bool {
	return t == Tree || t.IsWalkable()
}

func (t Tile) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tile %d", uint8(t))
	}
	return []byte(names[t]), nil
}

func (t *Tile) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Parse accepts a tile name, case-insensitively.
func Parse(s string) (Tile, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return Tile(i), nil
		}
	}
	return Water, fmt.Errorf("unknown tile %q", s)
}

func All() []Tile {
	out := make([]Tile, 0, count)
	for t := Tile(0); t < count; t++ {
		out = append(out, t)
	}
	return out
}
