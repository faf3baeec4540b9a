// Package weights holds the fixed-key weight vectors that drive the ranking
// composite and the prediction ensemble.
//
// A Vector is immutable: every edit produces a new Vector, so a holder can
// swap one in as a whole without coordinating with readers.
package weights

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind identifies which fixed key set a vector carries.
type Kind string

// Supported vector kinds.
const (
	KindRanking    Kind = "ranking"
	KindPrediction Kind = "prediction"
)

// Ranking metric keys, in evaluation order.
const (
	KeyElo    = "elo"
	KeyBT     = "bt"
	KeyXGD    = "xgd"
	KeyGD     = "gd"
	KeyWinPct = "win_pct"
	KeySD     = "sd"
	KeyGSAx   = "gsax"
	KeyPyth   = "pyth"
)

// Prediction model keys, in evaluation order. Elo and BT are shared with the
// ranking set.
const (
	KeyRF  = "rf"
	KeyGBM = "gbm"
	KeyLR  = "lr"
	KeyMLP = "mlp"
)

// SumTolerance bounds how far a committed vector may drift from a total of 1.
const SumTolerance = 1e-9

type schema struct {
	keys     []string
	defaults []float64
	labels   map[string]string
}

// The schemas are never handed out directly; accessors return copies.
var schemas = map[Kind]schema{ //nolint:gochecknoglobals // read-only key tables
	KindRanking: {
		keys:     []string{KeyElo, KeyBT, KeyXGD, KeyGD, KeyWinPct, KeySD, KeyGSAx, KeyPyth},
		defaults: []float64{0.25, 0.25, 0.15, 0.12, 0.08, 0.05, 0.05, 0.05},
		labels: map[string]string{
			KeyElo:    "ELO Rating",
			KeyBT:     "Bradley-Terry",
			KeyXGD:    "xG Diff/GP",
			KeyGD:     "Goal Diff/GP",
			KeyWinPct: "Win %",
			KeySD:     "Shot Diff/GP",
			KeyGSAx:   "Goalie GSAx",
			KeyPyth:   "Pythagorean",
		},
	},
	KindPrediction: {
		keys:     []string{KeyElo, KeyBT, KeyRF, KeyGBM, KeyLR, KeyMLP},
		defaults: []float64{0.20, 0.20, 0.20, 0.20, 0.10, 0.10},
		labels: map[string]string{
			KeyElo: "ELO",
			KeyBT:  "Bradley-Terry",
			KeyRF:  "Random Forest",
			KeyGBM: "Gradient Boosting",
			KeyLR:  "Logistic Regression",
			KeyMLP: "MLP Neural Net",
		},
	},
}

func lookup(kind Kind) (schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return schema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// ParseKind maps a user supplied name onto a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, err := lookup(k); err != nil {
		return "", err
	}
	return k, nil
}

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindRanking, KindPrediction}
}

// KeysOf returns the ordered key set for kind.
func KeysOf(kind Kind) ([]string, error) {
	s, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), s.keys...), nil
}

// Label returns the display label for key, or the key itself when unknown.
func Label(kind Kind, key string) string {
	if s, ok := schemas[kind]; ok {
		if l, ok := s.labels[key]; ok {
			return l
		}
	}
	return key
}

// Entry is one key/weight pair of a vector.
type Entry struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// Vector is an immutable mapping from a fixed key set to weights in [0,1].
type Vector struct {
	kind   Kind
	keys   []string
	values []float64
}

// New builds a vector of the given kind. Values are clamped into [0,1],
// missing keys are set to 0 and unknown keys are rejected. The result is not
// required to sum to 1; Rebalance always restores that.
func New(kind Kind, values map[string]float64) (Vector, error) {
	s, err := lookup(kind)
	if err != nil {
		return Vector{}, err
	}
	v := Vector{kind: kind, keys: s.keys, values: make([]float64, len(s.keys))}
	for key, w := range values {
		i := v.index(key)
		if i < 0 {
			return Vector{}, fmt.Errorf("%w: %q for %s", ErrUnknownKey, key, kind)
		}
		v.values[i] = clamp(w)
	}
	return v, nil
}

// Default returns the documented default vector for kind.
func Default(kind Kind) (Vector, error) {
	s, err := lookup(kind)
	if err != nil {
		return Vector{}, err
	}
	return Vector{kind: kind, keys: s.keys, values: append([]float64(nil), s.defaults...)}, nil
}

// DefaultRanking returns the default ranking composite vector.
func DefaultRanking() Vector {
	v, _ := Default(KindRanking)
	return v
}

// DefaultPrediction returns the default prediction ensemble vector.
func DefaultPrediction() Vector {
	v, _ := Default(KindPrediction)
	return v
}

// Kind reports the vector's kind.
func (v Vector) Kind() Kind { return v.kind }

// Len reports the number of keys.
func (v Vector) Len() int { return len(v.values) }

// Keys returns the ordered key set.
func (v Vector) Keys() []string { return append([]string(nil), v.keys...) }

// Value returns the weight for key.
func (v Vector) Value(key string) (float64, bool) {
	i := v.index(key)
	if i < 0 {
		return 0, false
	}
	return v.values[i], true
}

// Sum adds the weights in key order.
func (v Vector) Sum() float64 {
	total := 0.0
	for _, w := range v.values {
		total += w
	}
	return total
}

// Entries returns the weights in key order.
func (v Vector) Entries() []Entry {
	out := make([]Entry, len(v.keys))
	for i, key := range v.keys {
		out[i] = Entry{Key: key, Label: Label(v.kind, key), Weight: v.values[i]}
	}
	return out
}

// Map returns a copy of the weights keyed by name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.keys))
	for i, key := range v.keys {
		out[key] = v.values[i]
	}
	return out
}

// Equal reports whether both vectors share a kind and every weight differs by
// at most tol. A tol of 0 demands exact equality.
func (v Vector) Equal(other Vector, tol float64) bool {
	if v.kind != other.kind || len(v.values) != len(other.values) {
		return false
	}
	for i := range v.values {
		if math.Abs(v.values[i]-other.values[i]) > tol {
			return false
		}
	}
	return true
}

// IsModified reports whether any weight is more than tol away from the default.
func (v Vector) IsModified(tol float64) bool {
	d, err := Default(v.kind)
	if err != nil {
		return false
	}
	return !v.Equal(d, tol)
}

// MarshalJSON encodes the vector as a key to weight object.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

func (v Vector) index(key string) int {
	for i, k := range v.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// clamp pins x into [0,1]; NaN counts as 0.
func clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
