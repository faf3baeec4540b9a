package labctl

import (
	"fmt"
	"math"

	"github.com/okian/modellab/internal/domain/lab"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/summary"
	"github.com/okian/modellab/internal/domain/weights"
)

// floatTolerance bounds float comparisons after a JSON round trip.
const floatTolerance = 1e-9

// CheckResult returns every invariant res breaks. A nil slice means res is
// internally consistent.
func CheckResult(res model.Result) []error {
	var errs []error
	errs = append(errs, checkVector(res.Ranking)...)
	errs = append(errs, checkVector(res.Prediction)...)
	errs = append(errs, checkRanks(res.Entities)...)
	errs = append(errs, checkMatchups(res.Matchups)...)

	want := summary.Summarize(res.Entities, res.Matchups)
	if !summaryEqual(want, res.Summary) {
		errs = append(errs, fmt.Errorf("%w: summary %+v, entities imply %+v", ErrInvariant, res.Summary, want))
	}
	if res.Modified != (res.Ranking.Modified || res.Prediction.Modified) {
		errs = append(errs, fmt.Errorf("%w: modified flag disagrees with vectors", ErrInvariant))
	}
	return errs
}

func checkVector(ws model.WeightState) []error {
	var errs []error
	keys, err := weights.KeysOf(ws.Kind)
	if err != nil {
		return []error{fmt.Errorf("%w: %w", ErrInvariant, err)}
	}
	if len(ws.Weights) != len(keys) {
		errs = append(errs, fmt.Errorf("%w: %s has %d weights, want %d", ErrInvariant, ws.Kind, len(ws.Weights), len(keys)))
	}
	sum := 0.0
	for i, w := range ws.Weights {
		if i < len(keys) && w.Key != keys[i] {
			errs = append(errs, fmt.Errorf("%w: %s key %d is %q, want %q", ErrInvariant, ws.Kind, i, w.Key, keys[i]))
		}
		if w.Weight < 0 || w.Weight > 1 || math.IsNaN(w.Weight) {
			errs = append(errs, fmt.Errorf("%w: %s.%s = %v outside [0,1]", ErrInvariant, ws.Kind, w.Key, w.Weight))
		}
		sum += w.Weight
	}
	if math.Abs(sum-1) > weights.SumTolerance*10 {
		errs = append(errs, fmt.Errorf("%w: %s weights sum to %v", ErrInvariant, ws.Kind, sum))
	}
	if math.Abs(ws.Sum-sum) > floatTolerance {
		errs = append(errs, fmt.Errorf("%w: %s reports sum %v, weights add to %v", ErrInvariant, ws.Kind, ws.Sum, sum))
	}
	return errs
}

func checkRanks(entities []model.RankedEntity) []error {
	var errs []error
	for i, e := range entities {
		if e.CustomRank != i+1 {
			errs = append(errs, fmt.Errorf("%w: position %d holds custom rank %d", ErrInvariant, i+1, e.CustomRank))
		}
		if e.RankDelta != e.BaselineRank-e.CustomRank {
			errs = append(errs, fmt.Errorf("%w: %s rank delta %d, want %d", ErrInvariant, e.ID, e.RankDelta, e.BaselineRank-e.CustomRank))
		}
		if math.Abs(e.ScoreDiff-(e.CustomScore-e.BaselineScore)) > floatTolerance {
			errs = append(errs, fmt.Errorf("%w: %s score diff %v", ErrInvariant, e.ID, e.ScoreDiff))
		}
		if i > 0 && e.CustomScore > entities[i-1].CustomScore {
			errs = append(errs, fmt.Errorf("%w: %s outscores %s above it", ErrInvariant, e.ID, entities[i-1].ID))
		}
	}
	return errs
}

func checkMatchups(matchups []model.MatchupPrediction) []error {
	var errs []error
	for _, m := range matchups {
		want := m.Second
		if m.CustomProbability >= 0.5 {
			want = m.First
		}
		if m.CustomWinner != want {
			errs = append(errs, fmt.Errorf("%w: game %d winner %s at p=%v", ErrInvariant, m.Game, m.CustomWinner, m.CustomProbability))
		}
		if m.WinnerChanged != (m.CustomWinner != m.BaselineWinner) {
			errs = append(errs, fmt.Errorf("%w: game %d winner_changed is %v", ErrInvariant, m.Game, m.WinnerChanged))
		}
		if math.Abs(m.Shift-(m.CustomProbability-m.BaselineProbability)) > floatTolerance {
			errs = append(errs, fmt.Errorf("%w: game %d shift %v", ErrInvariant, m.Game, m.Shift))
		}
	}
	return errs
}

// CheckReproducible recomputes res locally from the baseline it carries and
// the weights it reports, and returns where the two disagree.
func CheckReproducible(res model.Result) []error {
	st, err := stateOf(res)
	if err != nil {
		return []error{fmt.Errorf("%w: %w", ErrInvariant, err)}
	}
	local := lab.Recompute(datasetOf(res), st, lab.DefaultParams())

	var errs []error
	if len(local.Entities) != len(res.Entities) || len(local.Matchups) != len(res.Matchups) {
		return []error{fmt.Errorf("%w: local recompute has a different shape", ErrInvariant)}
	}
	for i, e := range local.Entities {
		got := res.Entities[i]
		if got.ID != e.ID || got.CustomRank != e.CustomRank || math.Abs(got.CustomScore-e.CustomScore) > floatTolerance {
			errs = append(errs, fmt.Errorf("%w: rank %d is %s (%.6f), local recompute has %s (%.6f)",
				ErrInvariant, i+1, got.ID, got.CustomScore, e.ID, e.CustomScore))
		}
	}
	for i, m := range local.Matchups {
		got := res.Matchups[i]
		if got.Game != m.Game || got.CustomWinner != m.CustomWinner || math.Abs(got.CustomProbability-m.CustomProbability) > floatTolerance {
			errs = append(errs, fmt.Errorf("%w: game %d p=%.6f %s, local recompute p=%.6f %s",
				ErrInvariant, got.Game, got.CustomProbability, got.CustomWinner, m.CustomProbability, m.CustomWinner))
		}
	}
	return errs
}

func stateOf(res model.Result) (lab.State, error) {
	rv, err := vectorOf(res.Ranking)
	if err != nil {
		return lab.State{}, err
	}
	pv, err := vectorOf(res.Prediction)
	if err != nil {
		return lab.State{}, err
	}
	return lab.State{Revision: res.Revision, Ranking: rv, Prediction: pv}, nil
}

func vectorOf(ws model.WeightState) (weights.Vector, error) {
	values := make(map[string]float64, len(ws.Weights))
	for _, w := range ws.Weights {
		values[w.Key] = w.Weight
	}
	return weights.New(ws.Kind, values)
}

func datasetOf(res model.Result) *model.Dataset {
	ds := &model.Dataset{
		Entities: make([]model.Entity, 0, len(res.Entities)),
		Matchups: make([]model.Matchup, 0, len(res.Matchups)),
	}
	for _, e := range res.Entities {
		ds.Entities = append(ds.Entities, e.Entity)
	}
	for _, m := range res.Matchups {
		ds.Matchups = append(ds.Matchups, m.Matchup)
	}
	return ds
}

func summaryEqual(a, b model.Summary) bool {
	return a.MovedUp == b.MovedUp &&
		a.MovedDown == b.MovedDown &&
		a.MaxShift == b.MaxShift &&
		a.Flipped == b.Flipped &&
		math.Abs(a.AvgShift-b.AvgShift) <= floatTolerance
}
