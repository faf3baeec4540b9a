package summary_test

import (
	"testing"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

func ranked(deltas ...int) []model.RankedEntity {
	out := make([]model.RankedEntity, len(deltas))
	for i, d := range deltas {
		out[i] = model.RankedEntity{RankDelta: d}
	}
	return out
}

func TestSummarize(t *testing.T) {
	Convey("Given recomputed entities and matchups", t, func() {
		entities := ranked(3, -1, 0, -2, 0)
		matchups := []model.MatchupPrediction{
			{WinnerChanged: true},
			{WinnerChanged: false},
			{WinnerChanged: true},
		}

		Convey("When summarized", func() {
			got := summary.Summarize(entities, matchups)

			Convey("Then counts and shifts are aggregated", func() {
				So(got, ShouldResemble, model.Summary{
					MovedUp:   1,
					MovedDown: 2,
					AvgShift:  6.0 / 5.0,
					MaxShift:  3,
					Flipped:   2,
				})
			})
		})
	})

	Convey("Given a largest shift downward", t, func() {
		got := summary.Summarize(ranked(1, -4, 2), nil)

		Convey("Then the maximum uses the absolute value", func() {
			So(got.MaxShift, ShouldEqual, 4)
			So(got.AvgShift, ShouldAlmostEqual, 7.0/3.0, 1e-12)
		})
	})

	Convey("Given an empty dataset", t, func() {
		got := summary.Summarize(nil, nil)

		Convey("Then every figure is zero", func() {
			So(got, ShouldResemble, model.Summary{})
		})
	})

	Convey("Given matchups but no entities", t, func() {
		got := summary.Summarize(nil, []model.MatchupPrediction{{WinnerChanged: true}})

		Convey("Then shifts stay zero while flips are counted", func() {
			So(got.AvgShift, ShouldEqual, 0)
			So(got.MaxShift, ShouldEqual, 0)
			So(got.Flipped, ShouldEqual, 1)
		})
	})
}
