package weights

import (
	"fmt"
	"math"
)

// Rebalance sets key to raw (clamped into [0,1]) and rescales every other
// weight so the vector sums to 1 again.
//
// The remainder 1-v is split across the other keys in proportion to their
// current weights, which keeps the relative emphasis among untouched keys.
// When every other weight is already 0 the remainder is split evenly.
// Setting a key of a balanced vector to its current value returns an exact
// copy. The input vector is left untouched.
func Rebalance(v Vector, key string, raw float64) (Vector, error) {
	idx := v.index(key)
	if idx < 0 {
		return Vector{}, fmt.Errorf("%w: %q for %s", ErrUnknownKey, key, v.kind)
	}

	val := clamp(raw)
	if val == v.values[idx] && math.Abs(v.Sum()-1) <= SumTolerance {
		return Vector{kind: v.kind, keys: v.keys, values: append([]float64(nil), v.values...)}, nil
	}
	remainder := 1 - val

	othersSum := 0.0
	for i, w := range v.values {
		if i != idx {
			othersSum += w
		}
	}
	others := float64(len(v.values) - 1)

	out := make([]float64, len(v.values))
	for i, w := range v.values {
		switch {
		case i == idx:
			out[i] = val
		case othersSum > 0:
			out[i] = remainder * (w / othersSum)
		default:
			out[i] = remainder / others
		}
	}

	return Vector{kind: v.kind, keys: v.keys, values: out}, nil
}
