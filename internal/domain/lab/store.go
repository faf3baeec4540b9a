package lab

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithNotableShift sets the |rank delta| at which an entity is flagged.
func WithNotableShift(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.params.NotableShift = n
		}
	}
}

// WithModifiedTolerance sets how far from default a weight may drift before
// the vector counts as modified.
func WithModifiedTolerance(tol float64) Option {
	return func(s *Store) {
		if tol >= 0 {
			s.params.ModifiedTolerance = tol
		}
	}
}

// Store holds the current State over an immutable dataset.
//
// Writers are serialized and publish a fresh State through an atomic pointer,
// so readers always see both vectors of a single revision. The result of the
// current revision is memoized; a new revision always recomputes.
type Store struct {
	mu      sync.Mutex
	dataset *model.Dataset
	params  Params

	state  atomic.Pointer[State]
	result atomic.Pointer[model.Result]
}

// NewStore creates a store at the default state.
func NewStore(ds *model.Dataset, opts ...Option) *Store {
	s := &Store{dataset: ds, params: DefaultParams()}
	for _, opt := range opts {
		opt(s)
	}
	st := DefaultState()
	s.state.Store(&st)
	return s
}

// Dataset returns the baseline the store recomputes against.
func (s *Store) Dataset() *model.Dataset { return s.dataset }

// State returns the current revision.
func (s *Store) State() State { return *s.state.Load() }

// Apply executes one edit and returns the resulting state. An edit that leaves
// both vectors exactly as they were does not start a new revision.
func (s *Store) Apply(e model.Edit) (State, error) {
	if err := e.Validate(); err != nil {
		return s.State(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.state.Load()
	next := cur

	switch e.Op {
	case model.EditSet:
		v, err := s.vector(cur, e.Kind)
		if err != nil {
			return cur, err
		}
		nv, err := weights.Rebalance(v, e.Key, e.Value)
		if err != nil {
			return cur, fmt.Errorf("%w: %w", model.ErrInvalidEdit, err)
		}
		next = with(next, nv)
	case model.EditReset:
		kinds := weights.Kinds()
		if e.Kind != "" {
			kinds = []weights.Kind{e.Kind}
		}
		for _, k := range kinds {
			d, err := weights.Default(k)
			if err != nil {
				return cur, fmt.Errorf("%w: %w", model.ErrInvalidEdit, err)
			}
			next = with(next, d)
		}
	}

	if next.Ranking.Equal(cur.Ranking, 0) && next.Prediction.Equal(cur.Prediction, 0) {
		return cur, nil
	}
	next.Revision = cur.Revision + 1
	s.state.Store(&next)
	return next, nil
}

// Result returns the recomputation for the current state. The returned value
// is shared and must not be modified.
func (s *Store) Result() model.Result {
	st := s.state.Load()
	if r := s.result.Load(); r != nil && r.Revision == st.Revision {
		return *r
	}
	r := Recompute(s.dataset, *st, s.params)
	s.result.Store(&r)
	return r
}

func (s *Store) vector(st State, kind weights.Kind) (weights.Vector, error) {
	switch kind {
	case weights.KindRanking:
		return st.Ranking, nil
	case weights.KindPrediction:
		return st.Prediction, nil
	default:
		return weights.Vector{}, fmt.Errorf("%w: %w: %q", model.ErrInvalidEdit, weights.ErrUnknownKind, kind)
	}
}

func with(st State, v weights.Vector) State {
	if v.Kind() == weights.KindRanking {
		st.Ranking = v
	} else {
		st.Prediction = v
	}
	return st
}
