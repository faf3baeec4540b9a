package labctl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/modellab/internal/adapters/repository"
	"github.com/okian/modellab/internal/domain/lab"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/pkg/logger"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

const defaultTop = 15

// RecomputeOptions holds the flags of the recompute command.
type RecomputeOptions struct {
	Dataset      string
	Strict       bool
	Edits        []model.Edit
	Format       string
	Top          int
	ChangedOnly  bool
	NotableShift int
}

func newRecomputeCommand() *cobra.Command {
	opts := RecomputeOptions{}
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Apply weight edits to a dataset locally and print the result",
		Long: `Recompute loads a baseline dataset, applies the given edits in the order they
appear on the command line, and prints the recomputed rankings, matchups and
summary. Without --dataset the embedded sample is used.

Examples:
  labctl recompute --set ranking.elo=0.5
  labctl recompute --set prediction.rf=1 --changed
  labctl recompute --dataset teams.yaml --set ranking.sd=1 --reset ranking --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunRecompute(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "Baseline dataset (JSON or YAML); empty uses the embedded sample")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Reject unknown fields and unknown metric or model keys")
	cmd.Flags().Var(&editsFlag{op: model.EditSet, edits: &opts.Edits}, "set", "Set one weight and rebalance the rest (repeatable)")
	cmd.Flags().Var(&editsFlag{op: model.EditReset, edits: &opts.Edits}, "reset", "Reset ranking, prediction or all to defaults (repeatable)")
	cmd.Flags().StringVar(&opts.Format, "format", FormatTable, "Output format: table | json")
	cmd.Flags().IntVar(&opts.Top, "top", defaultTop, "Entities to show in table output; 0 shows all")
	cmd.Flags().BoolVar(&opts.ChangedOnly, "changed", false, "Only list matchups whose predicted winner flipped")
	cmd.Flags().IntVar(&opts.NotableShift, "notable", lab.DefaultNotableShift, "Rank shift that marks an entity as notable")
	return cmd
}

// RunRecompute executes the recompute command.
func RunRecompute(cmd *cobra.Command, opts RecomputeOptions) error {
	if opts.Format != FormatTable && opts.Format != FormatJSON {
		return fmt.Errorf("%w: --format must be %s or %s, got %q", ErrInvalidFlag, FormatTable, FormatJSON, opts.Format)
	}
	if opts.Top < 0 {
		return fmt.Errorf("%w: --top must not be negative", ErrInvalidFlag)
	}
	ctx := cmd.Context()
	log := logger.Get().Named("recompute")

	var ropts []repository.Option
	if opts.Strict {
		ropts = append(ropts, repository.WithStrictKeys())
	}
	ds, err := repository.Open(opts.Dataset, ropts...).Load(ctx)
	if err != nil {
		return err
	}

	store := lab.NewStore(ds, lab.WithNotableShift(opts.NotableShift))
	for _, e := range opts.Edits {
		st, err := store.Apply(e)
		if err != nil {
			return fmt.Errorf("apply %s: %w", FormatEdit(e), err)
		}
		log.Debug(ctx, "edit applied", logger.String("edit", FormatEdit(e)), logger.Uint64("revision", st.Revision))
	}
	res := store.Result()

	if opts.Format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return RenderTable(cmd.OutOrStdout(), res, opts.Top, opts.ChangedOnly)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
