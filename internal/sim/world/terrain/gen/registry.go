package gen

import "islecraft.ai/internal/sim/world/logic/mathx"

// Registry maps chunk coordinates to biome generators. Selection is a pure
// function of the coordinate so a location always keeps its biome.
type Registry struct {
	Rocky    Generator
	Forested Generator
	Sparse   Generator

	// Starting is used for the one-time bootstrap around the origin.
	Starting Generator
}

func DefaultRegistry() *Registry {
	sparse := NewIslandGenerator("sparse", Sparse)
	return &Registry{
		Rocky:    NewIslandGenerator("rocky", Rocky),
		Forested: NewIslandGenerator("forested", Forested),
		Sparse:   sparse,
		Starting: sparse,
	}
}

func (r *Registry) Select(cx, cy int) Generator {
	switch mathx.Mod(cx+cy, 3) {
	case 0:
		return r.Rocky
	case 1:
		return r.Forested
	default:
		return r.Sparse
	}
}

func (r *Registry) StartingGenerator() Generator {
	if r.Starting != nil {
		return r.Starting
	}
	return r.Sparse
}
