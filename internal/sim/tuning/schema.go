package tuning

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed tuning.schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tuning.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile("tuning.schema.json")
})

// Validate checks t against the embedded JSON schema and the cross-field
// rules the schema cannot express.
func (t Tuning) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return err
	}

	var errs []error
	for _, e := range []struct {
		name string
		g    Island
	}{
		{"sparse", t.Generators.Sparse},
		{"rocky", t.Generators.Rocky},
		{"forested", t.Generators.Forested},
	} {
		name, g := e.name, e.g
		if g.MinMass > g.MaxMass {
			errs = append(errs, fmt.Errorf("generators.%s: min_mass %d > max_mass %d", name, g.MinMass, g.MaxMass))
		}
		if sum := g.TreePermille + g.LootPermille + g.BoulderPermille; sum > 1000 {
			errs = append(errs, fmt.Errorf("generators.%s: feature permilles sum to %d > 1000", name, sum))
		}
	}
	sa := t.StartingArea
	if sa.LandMin > sa.LandMax {
		errs = append(errs, fmt.Errorf("starting_area: land_min %d > land_max %d", sa.LandMin, sa.LandMax))
	}
	if sa.FeaturesMin > sa.FeaturesMax {
		errs = append(errs, fmt.Errorf("starting_area: features_min %d > features_max %d", sa.FeaturesMin, sa.FeaturesMax))
	}
	if area := (2*sa.TileRadius + 1) * (2*sa.TileRadius + 1); sa.LandMin > area {
		errs = append(errs, fmt.Errorf("starting_area: land_min %d exceeds the %d cells inside tile_radius", sa.LandMin, area))
	}
	if t.Storage.Backend == BackendRedis && strings.TrimSpace(t.Storage.RedisAddr) == "" {
		errs = append(errs, errors.New("storage: redis backend needs redis_addr"))
	}
	return errors.Join(errs...)
}
