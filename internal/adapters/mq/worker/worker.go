// Package worker drains the edit queue. Exactly one Applier runs per lab so
// edits reach the store in arrival order and each one is fully recomputed
// before the next is taken.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/modellab/internal/adapters/mq/queue"
	"github.com/okian/modellab/internal/domain/lab"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
	"github.com/okian/modellab/pkg/logger"
	"github.com/okian/modellab/pkg/metrics"
)

// Store is the part of lab.Store the applier drives.
type Store interface {
	State() lab.State
	Apply(e model.Edit) (lab.State, error)
	Result() model.Result
}

// Queue defines how the applier receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Applier applies queued edits to a Store one at a time.
type Applier struct {
	queue Queue
	store Store
	name  string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewApplier creates an applier. Run must be called to start it.
func NewApplier(q Queue, s Store, opts ...Option) *Applier {
	w := &Applier{
		queue:    q,
		store:    s,
		name:     "applier",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until ctx is done, Shutdown is called or the queue is
// closed and drained.
func (w *Applier) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the loop and waits for the job in flight.
func (w *Applier) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Applier) Done() <-chan struct{} {
	return w.done
}

func (w *Applier) process(ctx context.Context, job queue.Job) { //nolint:gocritic // hugeParam: Job travels by value
	before := w.store.State().Revision
	st, err := w.store.Apply(job.Edit)
	if err != nil {
		metrics.RecordEditRejected(rejectReason(err))
		metrics.RecordErrorByComponent("worker", "apply")
		w.logger.Warn(ctx, "edit rejected",
			logger.String("edit_id", job.Edit.ID),
			logger.String("op", string(job.Edit.Op)),
			logger.String("kind", string(job.Edit.Kind)),
			logger.String("key", job.Edit.Key),
			logger.Error(err),
		)
		reply(job, queue.Outcome{Revision: st.Revision, Err: err})
		return
	}

	start := time.Now()
	res := w.store.Result()
	if st.Revision != before {
		metrics.RecordRecompute(float64(time.Since(start).Microseconds()) / 1000)
		metrics.RecordEditApplied(editKind(job.Edit), string(job.Edit.Op))
		metrics.UpdateRevision(res.Revision)
		metrics.UpdateSummary(res.Summary.MovedUp, res.Summary.MovedDown, res.Summary.MaxShift, res.Summary.Flipped)
		metrics.UpdateVectorModified(string(weights.KindRanking), res.Ranking.Modified)
		metrics.UpdateVectorModified(string(weights.KindPrediction), res.Prediction.Modified)
	}

	w.logger.Debug(ctx, "edit applied",
		logger.String("edit_id", job.Edit.ID),
		logger.String("op", string(job.Edit.Op)),
		logger.String("kind", string(job.Edit.Kind)),
		logger.String("key", job.Edit.Key),
		logger.Float64("value", job.Edit.Value),
		logger.Uint64("revision", st.Revision),
	)
	reply(job, queue.Outcome{Revision: st.Revision, Result: res})
}

func reply(job queue.Job, o queue.Outcome) { //nolint:gocritic // hugeParam: Job travels by value
	if job.Done == nil {
		return
	}
	select {
	case job.Done <- o:
	default:
	}
}

func editKind(e model.Edit) string {
	if e.Kind == "" {
		return "all"
	}
	return string(e.Kind)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, weights.ErrUnknownKey):
		return "unknown_key"
	case errors.Is(err, weights.ErrUnknownKind):
		return "unknown_kind"
	default:
		return "invalid_edit"
	}
}
