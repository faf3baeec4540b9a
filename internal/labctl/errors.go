package labctl

import (
	"errors"
	"fmt"
)

// Sentinel kinds for CLI errors.
var (
	ErrInvalidFlag = errors.New("invalid flag")
	ErrInvariant   = errors.New("invariant violated")
	ErrUnhealthy   = errors.New("service unhealthy")
	ErrStatus      = errors.New("unexpected status")
)

// VerifyFailureError reports that verify ran to completion but the server
// broke at least one invariant.
type VerifyFailureError struct {
	Failures int
	Edits    int
}

func (e *VerifyFailureError) Error() string {
	return fmt.Sprintf("verify: %d of %d edits broke an invariant", e.Failures, e.Edits)
}
