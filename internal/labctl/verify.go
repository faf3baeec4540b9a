package labctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/pkg/logger"
)

// Verify defaults.
const (
	defaultBaseURL      = "http://localhost:9080"
	defaultEdits        = 200
	defaultTimeout      = 10 * time.Second
	defaultRetryEvery   = 7
	maxReportedFailures = 20
)

// VerifyConfig holds configuration for a verify run.
type VerifyConfig struct {
	BaseURL    string        // server to drive
	Edits      int           // number of generated edits
	Seed       uint64        // generator seed
	Timeout    time.Duration // per-request timeout
	RetryEvery int           // resubmit every Nth edit to exercise deduplication; 0 disables
	Reset      bool          // reset both vectors before and after the run
}

// VerifyStats summarizes a verify run.
type VerifyStats struct {
	Edits      int
	Applied    int
	NoOps      int
	Duplicates int
	Failures   int
	FirstRev   uint64
	LastRev    uint64
	Duration   time.Duration
}

func newVerifyCommand() *cobra.Command {
	cfg := VerifyConfig{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Drive a running server with random edits and check every response",
		Long: `Verify submits a reproducible stream of random weight edits to a running
modellab server and checks each returned result:

  - both weight vectors sum to 1 and stay within [0,1]
  - custom ranks are a permutation in score order
  - the summary agrees with the entities and matchups it summarizes
  - the result matches a local recomputation from the same weights
  - two consecutive GET /lab calls return identical bodies
  - retried edit IDs are reported as duplicates without a new revision

Revisions are expected to advance by exactly one per applied edit, so run it
against a server nobody else is editing. The command exits 1 when any
invariant is broken and 2 on other errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := RunVerify(cmd.Context(), cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if stats.Failures > 0 {
				return &VerifyFailureError{Failures: stats.Failures, Edits: stats.Edits}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", defaultBaseURL, "Base URL of the server")
	cmd.Flags().IntVar(&cfg.Edits, "edits", defaultEdits, "Number of random edits to submit")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 1, "Seed for the edit generator")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	cmd.Flags().IntVar(&cfg.RetryEvery, "retry-every", defaultRetryEvery, "Resubmit every Nth edit with the same ID (0 disables)")
	cmd.Flags().BoolVar(&cfg.Reset, "reset", true, "Reset both vectors before and after the run")
	return cmd
}

// RunVerify executes a verify run and writes a report to out. It returns an
// error only when the run could not be carried out; broken invariants are
// counted in the returned stats.
func RunVerify(ctx context.Context, cfg VerifyConfig, out io.Writer) (VerifyStats, error) {
	if cfg.Edits < 0 {
		return VerifyStats{}, fmt.Errorf("%w: --edits must not be negative", ErrInvalidFlag)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	log := logger.Get().Named("verify")
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	gen := NewGenerator(cfg.Seed)
	start := time.Now()
	stats := VerifyStats{}

	log.Info(ctx, "starting verify run",
		logger.String("url", cfg.BaseURL),
		logger.Int("edits", cfg.Edits),
		logger.Uint64("seed", cfg.Seed),
	)

	if err := client.Health(ctx); err != nil {
		return stats, err
	}
	if cfg.Reset {
		if _, err := client.Submit(ctx, model.Edit{ID: uuid.NewString(), Op: model.EditReset}); err != nil {
			return stats, fmt.Errorf("initial reset: %w", err)
		}
	}

	base, _, err := client.Lab(ctx)
	if err != nil {
		return stats, err
	}
	stats.FirstRev = base.Revision
	prevRev := base.Revision
	var failures []error

	fail := func(step int, e model.Edit, errs []error) {
		if len(errs) == 0 {
			return
		}
		stats.Failures++
		for _, err := range errs {
			failures = append(failures, fmt.Errorf("edit %d (%s): %w", step, FormatEdit(e), err))
		}
	}

	for i := 1; i <= cfg.Edits; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e := gen.Next()
		resp, err := client.Submit(ctx, e)
		if err != nil {
			return stats, fmt.Errorf("edit %d: %w", i, err)
		}
		stats.Edits++

		var errs []error
		switch {
		case resp.Duplicate:
			errs = append(errs, fmt.Errorf("%w: fresh edit ID %s reported as duplicate", ErrInvariant, e.ID))
		case resp.Result.Revision == prevRev:
			stats.NoOps++
		case resp.Result.Revision == prevRev+1:
			stats.Applied++
		default:
			errs = append(errs, fmt.Errorf("%w: revision jumped from %d to %d", ErrInvariant, prevRev, resp.Result.Revision))
		}
		prevRev = resp.Result.Revision
		errs = append(errs, CheckResult(resp.Result)...)
		errs = append(errs, CheckReproducible(resp.Result)...)
		errs = append(errs, checkDeterministic(ctx, client, prevRev)...)

		if cfg.RetryEvery > 0 && i%cfg.RetryEvery == 0 {
			again, err := client.Submit(ctx, e)
			if err != nil {
				return stats, fmt.Errorf("retry of edit %d: %w", i, err)
			}
			stats.Duplicates++
			if !again.Duplicate || again.Result.Revision != prevRev {
				errs = append(errs, fmt.Errorf("%w: retry returned duplicate=%v at revision %d, want duplicate at %d",
					ErrInvariant, again.Duplicate, again.Result.Revision, prevRev))
			}
		}
		fail(i, e, errs)
		log.Debug(ctx, "edit verified",
			logger.Int("step", i),
			logger.String("edit", FormatEdit(e)),
			logger.Uint64("revision", prevRev),
			logger.Int("problems", len(errs)),
		)
	}

	stats.LastRev = prevRev
	if cfg.Reset {
		if _, err := client.Submit(ctx, model.Edit{ID: uuid.NewString(), Op: model.EditReset}); err != nil {
			log.Warn(ctx, "final reset failed", logger.Error(err))
		}
	}
	stats.Duration = time.Since(start)

	writeVerifyReport(out, stats, failures)
	log.Info(ctx, "verify run finished",
		logger.Int("edits", stats.Edits),
		logger.Int("applied", stats.Applied),
		logger.Int("failures", stats.Failures),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// checkDeterministic reads /lab twice and expects identical bodies at rev.
func checkDeterministic(ctx context.Context, client *Client, rev uint64) []error {
	first, a, err := client.Lab(ctx)
	if err != nil {
		return []error{err}
	}
	_, b, err := client.Lab(ctx)
	if err != nil {
		return []error{err}
	}
	var errs []error
	if first.Revision != rev {
		errs = append(errs, fmt.Errorf("%w: GET /lab at revision %d, edit returned %d", ErrInvariant, first.Revision, rev))
	}
	if !bytes.Equal(a, b) {
		errs = append(errs, fmt.Errorf("%w: repeated GET /lab differs", ErrInvariant))
	}
	return errs
}

func writeVerifyReport(out io.Writer, stats VerifyStats, failures []error) {
	fmt.Fprintf(out, "edits: %d  applied: %d  no-op: %d  retried: %d\n",
		stats.Edits, stats.Applied, stats.NoOps, stats.Duplicates)
	fmt.Fprintf(out, "revisions: %d -> %d  duration: %s\n", stats.FirstRev, stats.LastRev, stats.Duration.Round(time.Millisecond))
	if len(failures) == 0 {
		fmt.Fprintln(out, "all invariants held")
		return
	}
	fmt.Fprintf(out, "%d edits broke invariants:\n", stats.Failures)
	for i, err := range failures {
		if i == maxReportedFailures {
			fmt.Fprintf(out, "  ... and %d more\n", len(failures)-i)
			break
		}
		fmt.Fprintf(out, "  %v\n", err)
	}
}

// IsVerifyFailure reports whether err means verify found broken invariants.
func IsVerifyFailure(err error) bool {
	var vf *VerifyFailureError
	return errors.As(err, &vf)
}
