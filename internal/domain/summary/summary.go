// Package summary reduces a recomputation into headline counts.
package summary

import "github.com/okian/modellab/internal/domain/model"

// Summarize counts entities that moved up or down, the mean and maximum
// absolute rank shift, and matchups whose winner flipped. Empty inputs give a
// zero Summary.
func Summarize(entities []model.RankedEntity, matchups []model.MatchupPrediction) model.Summary {
	var s model.Summary
	total := 0
	for _, e := range entities {
		d := e.RankDelta
		switch {
		case d > 0:
			s.MovedUp++
		case d < 0:
			s.MovedDown++
			d = -d
		}
		total += d
		if d > s.MaxShift {
			s.MaxShift = d
		}
	}
	if len(entities) > 0 {
		s.AvgShift = float64(total) / float64(len(entities))
	}
	for _, m := range matchups {
		if m.WinnerChanged {
			s.Flipped++
		}
	}
	return s
}
