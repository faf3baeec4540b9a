// Package scoring recomputes composite scores and ensemble probabilities from
// a weight vector.
//
// Both computations are weighted averages normalized by the vector total; they
// differ only in what stands in for a missing input (see model.Entity.Metric
// and model.Matchup.Probability).
package scoring

import (
	"math"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

// WinThreshold is the probability at or above which the first party is
// predicted to win.
const WinThreshold = 0.5

// normalizer returns the divisor for w: the weight total, or 1 when the total
// is zero or not finite.
func normalizer(w weights.Vector) float64 {
	total := w.Sum()
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 1
	}
	return total
}

// weightedAverage folds value(key) over w in key order so results are
// bit-for-bit reproducible.
func weightedAverage(w weights.Vector, value func(key string) float64) float64 {
	total := normalizer(w)
	acc := 0.0
	for _, e := range w.Entries() {
		acc += (e.Weight / total) * value(e.Key)
	}
	return acc
}

// CompositeScore is the weighted sum of the entity's normalized metrics.
// Missing metrics contribute 0; the result is not clamped.
func CompositeScore(e model.Entity, w weights.Vector) float64 {
	return weightedAverage(w, e.Metric)
}

// EnsembleProbability is the weighted average of per-model P(first wins).
// Missing models contribute 0.5.
func EnsembleProbability(m model.Matchup, w weights.Vector) float64 {
	return weightedAverage(w, m.Probability)
}

// Winner picks the first party at p >= 0.5, else the second.
func Winner(m model.Matchup, p float64) string {
	if p >= WinThreshold {
		return m.First
	}
	return m.Second
}

// PredictMatchup recomputes one matchup and flags a changed winner.
func PredictMatchup(m model.Matchup, w weights.Vector) model.MatchupPrediction {
	p := EnsembleProbability(m, w)
	winner := Winner(m, p)
	return model.MatchupPrediction{
		Matchup:           m,
		CustomProbability: p,
		CustomWinner:      winner,
		WinnerChanged:     winner != m.BaselineWinner,
		Shift:             p - m.BaselineProbability,
	}
}

// PredictMatchups recomputes every matchup, preserving input order.
func PredictMatchups(ms []model.Matchup, w weights.Vector) []model.MatchupPrediction {
	out := make([]model.MatchupPrediction, len(ms))
	for i, m := range ms {
		out[i] = PredictMatchup(m, w)
	}
	return out
}
