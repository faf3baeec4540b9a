// Package service wires the lab store, the edit queue and the applier into
// the single object the HTTP API and the process entry point talk to.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	editqueue "github.com/okian/modellab/internal/adapters/mq/queue"
	"github.com/okian/modellab/internal/adapters/mq/worker"
	"github.com/okian/modellab/internal/domain/dedupe"
	"github.com/okian/modellab/internal/domain/lab"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/ranking"
	"github.com/okian/modellab/pkg/logger"
	"github.com/okian/modellab/pkg/metrics"
)

const applierShutdownTimeout = 5 * time.Second

// Receipt reports how a submitted edit was handled.
type Receipt struct {
	EditID    string
	Duplicate bool
	Result    model.Result
}

// Service owns the lab state for one dataset.
type Service struct {
	mu sync.RWMutex

	dataset *model.Dataset
	store   *lab.Store
	deduper dedupe.Deduper
	queue   *editqueue.InMemoryQueue
	applier *worker.Applier
	cancel  context.CancelFunc

	queueSize         int
	dedupeSize        int
	notableShift      int
	modifiedTolerance float64

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataset sets the baseline the lab recomputes against.
func WithDataset(ds *model.Dataset) Option {
	return func(s *Service) {
		if ds != nil {
			s.dataset = ds
		}
	}
}

// WithQueueSize sets how many edits may wait for the applier.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many edit IDs are remembered for retries. Zero
// remembers every ID.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithNotableShift sets the |rank delta| at which an entity is flagged.
func WithNotableShift(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notableShift = n
		}
	}
}

// WithModifiedTolerance sets the drift at which a vector counts as modified.
func WithModifiedTolerance(tol float64) Option {
	return func(s *Service) {
		if tol >= 0 {
			s.modifiedTolerance = tol
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without WithDataset it serves an empty dataset.
func New(opts ...Option) *Service {
	s := &Service{
		dataset:           &model.Dataset{},
		queueSize:         1024,
		dedupeSize:        10_000,
		notableShift:      lab.DefaultNotableShift,
		modifiedTolerance: lab.DefaultModifiedTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store at revision 0 and launches the applier.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.store = lab.NewStore(s.dataset,
		lab.WithNotableShift(s.notableShift),
		lab.WithModifiedTolerance(s.modifiedTolerance),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = editqueue.NewInMemoryQueue(editqueue.WithCapacity(s.queueSize))
	s.applier = worker.NewApplier(s.queue, s.store, worker.WithLogger(s.logger))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.applier.Run(runCtx)

	res := s.store.Result()
	metrics.UpdateDatasetSize(len(s.dataset.Entities), len(s.dataset.Matchups))
	metrics.UpdateRevision(res.Revision)

	s.started = true
	s.logger.Info(ctx, "lab service started",
		logger.Int("entities", len(s.dataset.Entities)),
		logger.Int("matchups", len(s.dataset.Matchups)),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue, lets the applier drain it and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping lab service...")

	_ = s.queue.Close()
	select {
	case <-s.applier.Done():
	case <-time.After(applierShutdownTimeout):
		s.logger.Warn(ctx, "applier did not drain in time")
		shutdownCtx, cancel := context.WithTimeout(ctx, applierShutdownTimeout)
		_ = s.applier.Shutdown(shutdownCtx)
		cancel()
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "lab service stopped")
}

// Done is closed when the applier exits. It is nil before Start.
func (s *Service) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.applier == nil {
		return nil
	}
	return s.applier.Done()
}

// Submit queues an edit and waits until the applier has handled it. An edit
// without an ID gets a generated one; an ID seen before is not applied again
// and returns the current result.
func (s *Service) Submit(ctx context.Context, e model.Edit) (Receipt, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return Receipt{}, ErrNotStarted
	}

	if err := e.Validate(); err != nil {
		metrics.RecordEditRejected("invalid_edit")
		return Receipt{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEditDuplicate()
		s.logger.Debug(ctx, "duplicate edit", logger.String("edit_id", e.ID))
		return Receipt{EditID: e.ID, Duplicate: true, Result: s.store.Result()}, nil
	}

	job := editqueue.NewJob(e)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, e.ID)
		return Receipt{}, fmt.Errorf("enqueue edit %s: %w", e.ID, err)
	}

	select {
	case out := <-job.Done:
		if out.Err != nil {
			s.deduper.Unrecord(ctx, e.ID)
			return Receipt{}, out.Err
		}
		return Receipt{EditID: e.ID, Result: out.Result}, nil
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}
}

// Result returns the recomputation of the current revision.
func (s *Service) Result(_ context.Context) (model.Result, error) {
	st, err := s.labStore()
	if err != nil {
		return model.Result{}, err
	}
	return st.Result(), nil
}

// Rankings returns the top n recomputed entities; n <= 0 returns all.
func (s *Service) Rankings(ctx context.Context, n int) ([]model.RankedEntity, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return res.Entities, nil
	}
	return ranking.TopN(res.Entities, n), nil
}

// Entity returns one recomputed entity.
func (s *Service) Entity(ctx context.Context, id string) (model.RankedEntity, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return model.RankedEntity{}, err
	}
	for _, e := range res.Entities {
		if e.ID == id {
			return e, nil
		}
	}
	return model.RankedEntity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Matchups returns recomputed matchups, optionally only those whose
// predicted winner flipped.
func (s *Service) Matchups(ctx context.Context, changedOnly bool) ([]model.MatchupPrediction, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	if !changedOnly {
		return res.Matchups, nil
	}
	out := make([]model.MatchupPrediction, 0, res.Summary.Flipped)
	for _, m := range res.Matchups {
		if m.WinnerChanged {
			out = append(out, m)
		}
	}
	return out, nil
}

// Summary returns the aggregate of the current revision.
func (s *Service) Summary(ctx context.Context) (model.Summary, error) {
	res, err := s.Result(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	return res.Summary, nil
}

// Weights returns both vectors of the current revision.
func (s *Service) Weights(ctx context.Context) (rank, pred model.WeightState, err error) {
	res, err := s.Result(ctx)
	if err != nil {
		return model.WeightState{}, model.WeightState{}, err
	}
	return res.Ranking, res.Prediction, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
		"entities":   len(s.dataset.Entities),
		"matchups":   len(s.dataset.Matchups),
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		res := s.store.Result()
		stats["queueLength"] = queueLen
		stats["revision"] = res.Revision
		stats["modified"] = res.Modified
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRevision(res.Revision)
	}
	return stats
}

func (s *Service) labStore() (*lab.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}
