// Package labctl implements the labctl command line: local recomputation of
// a dataset under edited weights, and a verifier that drives a running server.
package labctl

import (
	"github.com/spf13/cobra"

	"github.com/okian/modellab/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev" //nolint:gochecknoglobals // set via -ldflags

// NewRootCommand builds the labctl command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labctl",
		Short: "Work with modellab weights from the command line",
		Long: `labctl recomputes rankings and matchup predictions under custom weights
without a server, and verifies that a running modellab server keeps its
weight and ranking invariants under a stream of random edits.`,
		Version:      Version,
		SilenceUsage: true,
	}

	debug := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithoutSource()); err != nil {
			return err
		}
		if *debug {
			return logger.SetLevelString("debug")
		}
		return logger.SetLevelString("warn")
	}

	cmd.AddCommand(newRecomputeCommand())
	cmd.AddCommand(newVerifyCommand())
	return cmd
}
