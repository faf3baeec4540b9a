// Package lab runs the weight-recomputation pipeline and holds the current
// pair of weight vectors.
//
// Recompute is a pure function of (dataset, state). Store owns the only
// mutable data in the system, the two vectors, and replaces them as a whole
// on every edit.
package lab

import (
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/ranking"
	"github.com/okian/modellab/internal/domain/scoring"
	"github.com/okian/modellab/internal/domain/summary"
	"github.com/okian/modellab/internal/domain/weights"
)

// Default pipeline tuning.
const (
	DefaultNotableShift      = 5
	DefaultModifiedTolerance = 0.001
)

// State is one revision of the lab's weight vectors.
type State struct {
	Revision   uint64
	Ranking    weights.Vector
	Prediction weights.Vector
}

// DefaultState returns revision 0 with both default vectors.
func DefaultState() State {
	return State{
		Ranking:    weights.DefaultRanking(),
		Prediction: weights.DefaultPrediction(),
	}
}

// Params tunes the derived flags of a recomputation.
type Params struct {
	NotableShift      int
	ModifiedTolerance float64
}

// DefaultParams returns the dashboard's historical thresholds.
func DefaultParams() Params {
	return Params{NotableShift: DefaultNotableShift, ModifiedTolerance: DefaultModifiedTolerance}
}

// Recompute rescores, reranks and repredicts the whole dataset under st.
// Identical inputs always produce identical output.
func Recompute(ds *model.Dataset, st State, p Params) model.Result {
	var (
		entities []model.Entity
		matchups []model.Matchup
	)
	if ds != nil {
		entities, matchups = ds.Entities, ds.Matchups
	}

	ranked := ranking.Rerank(entities, func(e model.Entity) float64 {
		return scoring.CompositeScore(e, st.Ranking)
	}, ranking.WithNotableShift(p.NotableShift))
	predicted := scoring.PredictMatchups(matchups, st.Prediction)

	rs := weightState(st.Ranking, p.ModifiedTolerance)
	ps := weightState(st.Prediction, p.ModifiedTolerance)

	return model.Result{
		Revision:   st.Revision,
		Modified:   rs.Modified || ps.Modified,
		Ranking:    rs,
		Prediction: ps,
		Entities:   ranked,
		Matchups:   predicted,
		Summary:    summary.Summarize(ranked, predicted),
	}
}

func weightState(v weights.Vector, tol float64) model.WeightState {
	return model.WeightState{
		Kind:     v.Kind(),
		Weights:  v.Entries(),
		Sum:      v.Sum(),
		Modified: v.IsModified(tol),
	}
}
