package labctl

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/modellab/internal/domain/model"
)

// RenderTable writes res as aligned text tables. top limits the entity table
// (0 shows all) and changedOnly hides matchups whose winner held.
func RenderTable(out io.Writer, res model.Result, top int, changedOnly bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "revision %d", res.Revision)
	if res.Modified {
		fmt.Fprint(tw, " (modified)")
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw)

	for _, ws := range []model.WeightState{res.Ranking, res.Prediction} {
		fmt.Fprintf(tw, "%s weights\tsum %.4f\n", ws.Kind, ws.Sum)
		for _, w := range ws.Weights {
			fmt.Fprintf(tw, "  %s\t%s\t%.4f\n", w.Key, w.Label, w.Weight)
		}
		fmt.Fprintln(tw)
	}

	entities := res.Entities
	if top > 0 && top < len(entities) {
		entities = entities[:top]
	}
	fmt.Fprintln(tw, "RANK\tID\tTIER\tSCORE\tBASE\tDELTA\t")
	for _, e := range entities {
		mark := ""
		if e.Notable {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%d\t%+d\t%s\n",
			e.CustomRank, e.ID, e.Tier, e.CustomScore, e.BaselineRank, e.RankDelta, mark)
	}
	if len(entities) < len(res.Entities) {
		fmt.Fprintf(tw, "... %d more\n", len(res.Entities)-len(entities))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "GAME\tMATCHUP\tBASE P\tCUSTOM P\tWINNER\t")
	for _, m := range res.Matchups {
		if changedOnly && !m.WinnerChanged {
			continue
		}
		mark := ""
		if m.WinnerChanged {
			mark = "flipped"
		}
		fmt.Fprintf(tw, "%d\t%s @ %s\t%.3f\t%.3f\t%s\t%s\n",
			m.Game, m.Second, m.First, m.BaselineProbability, m.CustomProbability, m.CustomWinner, mark)
	}
	fmt.Fprintln(tw)

	s := res.Summary
	fmt.Fprintf(tw, "moved up %d, moved down %d, avg shift %.2f, max shift %d, flipped %d\n",
		s.MovedUp, s.MovedDown, s.AvgShift, s.MaxShift, s.Flipped)

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}
