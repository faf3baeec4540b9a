package model

import (
	"fmt"
	"slices"

	"github.com/okian/modellab/internal/domain/weights"
)

// EditOp names what an Edit does to the lab state.
type EditOp string

// Supported edit operations.
const (
	EditSet   EditOp = "set"
	EditReset EditOp = "reset"
)

// Edit is one user action against the weight vectors. Edits are applied one
// at a time in arrival order.
type Edit struct {
	ID    string       // idempotency key
	Op    EditOp
	Kind  weights.Kind // empty on reset means both vectors
	Key   string       // set only
	Value float64      // set only; clamped by the rebalance step
}

// Validate rejects edits that cannot be applied.
func (e Edit) Validate() error {
	switch e.Op {
	case EditSet:
		keys, err := weights.KeysOf(e.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEdit, err)
		}
		if !slices.Contains(keys, e.Key) {
			return fmt.Errorf("%w: %w: %q for %s", ErrInvalidEdit, weights.ErrUnknownKey, e.Key, e.Kind)
		}
	case EditReset:
		if e.Kind == "" {
			return nil
		}
		if _, err := weights.KeysOf(e.Kind); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEdit, err)
		}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidEdit, e.Op)
	}
	return nil
}
