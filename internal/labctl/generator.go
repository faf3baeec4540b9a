package labctl

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

// Edit mix for generated workloads, out of 100.
const (
	resetPercent    = 10
	extremePercent  = 15
	outOfRangeLimit = 0.25
)

// Generator produces a reproducible stream of edits from a seed.
type Generator struct {
	rng *rand.Rand
	ns  uuid.UUID
	n   int
}

// NewGenerator seeds a generator. The same seed always yields the same
// sequence of edits; edit IDs are derived from a per-generator namespace so
// a rerun against the same server is not mistaken for a retry.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		ns:  uuid.New(),
	}
}

// Next returns the next edit. Most are sets of a random key to a random
// value; some pin a key to 0 or 1, some fall slightly outside [0,1] to
// exercise clamping, and a few reset one or both vectors.
func (g *Generator) Next() model.Edit {
	g.n++
	id := uuid.NewSHA1(g.ns, []byte{byte(g.n >> 24), byte(g.n >> 16), byte(g.n >> 8), byte(g.n)}).String()

	kinds := weights.Kinds()
	roll := g.rng.IntN(100)
	if roll < resetPercent {
		e := model.Edit{ID: id, Op: model.EditReset}
		if pick := g.rng.IntN(len(kinds) + 1); pick < len(kinds) {
			e.Kind = kinds[pick]
		}
		return e
	}

	kind := kinds[g.rng.IntN(len(kinds))]
	keys, _ := weights.KeysOf(kind)
	key := keys[g.rng.IntN(len(keys))]

	var value float64
	switch {
	case roll < resetPercent+extremePercent:
		value = float64(g.rng.IntN(2))
	case roll < resetPercent+2*extremePercent:
		value = -outOfRangeLimit + g.rng.Float64()*(1+2*outOfRangeLimit)
	default:
		value = g.rng.Float64()
	}
	return model.Edit{ID: id, Op: model.EditSet, Kind: kind, Key: key, Value: value}
}
