// Package ranking re-orders entities by a recomputed score and reports how
// far each one moved from its baseline rank.
package ranking

import (
	"sort"

	"github.com/okian/modellab/internal/domain/model"
)

// ScoreFunc computes the custom score of one entity.
type ScoreFunc func(model.Entity) float64

// Option tunes Rerank.
type Option func(*options)

type options struct {
	notableShift int
}

// WithNotableShift flags entities whose |rank delta| reaches n. Zero or a
// negative n disables the flag.
func WithNotableShift(n int) Option {
	return func(o *options) {
		o.notableShift = n
	}
}

// Rerank scores every entity, sorts by score descending and assigns ranks
// 1..N. Exact ties keep a deterministic order: baseline rank ascending, then
// id ascending. The input slice is not modified.
func Rerank(entities []model.Entity, score ScoreFunc, opts ...Option) []model.RankedEntity {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]model.RankedEntity, len(entities))
	for i, e := range entities {
		s := score(e)
		out[i] = model.RankedEntity{
			Entity:      e,
			CustomScore: s,
			ScoreDiff:   s - e.BaselineScore,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CustomScore != b.CustomScore {
			return a.CustomScore > b.CustomScore
		}
		if a.BaselineRank != b.BaselineRank {
			return a.BaselineRank < b.BaselineRank
		}
		return a.ID < b.ID
	})

	for i := range out {
		out[i].CustomRank = i + 1
		out[i].RankDelta = out[i].BaselineRank - out[i].CustomRank
		out[i].Notable = o.notableShift > 0 && abs(out[i].RankDelta) >= o.notableShift
	}
	return out
}

// TopN returns at most n leading entries of an already ranked slice.
func TopN(ranked []model.RankedEntity, n int) []model.RankedEntity {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
