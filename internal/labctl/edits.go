package labctl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

// resetAll names both vectors on the command line.
const resetAll = "all"

// editsFlag collects --set and --reset values into one ordered list, so
// edits apply in the order they were typed.
type editsFlag struct {
	op    model.EditOp
	edits *[]model.Edit
}

func (f *editsFlag) String() string {
	if f.edits == nil {
		return ""
	}
	parts := make([]string, 0, len(*f.edits))
	for _, e := range *f.edits {
		if e.Op == f.op {
			parts = append(parts, FormatEdit(e))
		}
	}
	return strings.Join(parts, ",")
}

func (f *editsFlag) Set(s string) error {
	var (
		e   model.Edit
		err error
	)
	if f.op == model.EditReset {
		e, err = ParseReset(s)
	} else {
		e, err = ParseSet(s)
	}
	if err != nil {
		return err
	}
	*f.edits = append(*f.edits, e)
	return nil
}

func (f *editsFlag) Type() string {
	if f.op == model.EditReset {
		return "kind"
	}
	return "kind.key=value"
}

// ParseSet reads "ranking.elo=0.5" into a set edit.
func ParseSet(s string) (model.Edit, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return model.Edit{}, fmt.Errorf("%w: %q: want kind.key=value", ErrInvalidFlag, s)
	}
	kindName, key, ok := strings.Cut(strings.TrimSpace(lhs), ".")
	if !ok || key == "" {
		return model.Edit{}, fmt.Errorf("%w: %q: want kind.key=value", ErrInvalidFlag, s)
	}
	kind, err := weights.ParseKind(kindName)
	if err != nil {
		return model.Edit{}, fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(rhs), 64)
	if err != nil {
		return model.Edit{}, fmt.Errorf("%w: %q: %w", ErrInvalidFlag, s, err)
	}
	e := model.Edit{Op: model.EditSet, Kind: kind, Key: strings.ToLower(key), Value: value}
	if err := e.Validate(); err != nil {
		return model.Edit{}, fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}
	return e, nil
}

// ParseReset reads "ranking", "prediction" or "all" into a reset edit.
func ParseReset(s string) (model.Edit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == resetAll {
		return model.Edit{Op: model.EditReset}, nil
	}
	kind, err := weights.ParseKind(s)
	if err != nil {
		return model.Edit{}, fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}
	return model.Edit{Op: model.EditReset, Kind: kind}, nil
}

// FormatEdit renders e the way ParseSet and ParseReset read it.
func FormatEdit(e model.Edit) string {
	if e.Op == model.EditReset {
		if e.Kind == "" {
			return resetAll
		}
		return string(e.Kind)
	}
	return fmt.Sprintf("%s.%s=%s", e.Kind, e.Key, strconv.FormatFloat(e.Value, 'g', -1, 64))
}
