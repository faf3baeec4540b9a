package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	editqueue "github.com/okian/modellab/internal/adapters/mq/queue"
	service "github.com/okian/modellab/internal/app"
	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

// ErrBadRequest tags request parsing failures.
var ErrBadRequest = errors.New("bad request")

// Machine-readable codes carried in error bodies.
const (
	codeBadRequest   = "bad_request"
	codeNotFound     = "not_found"
	codeBackpressure = "backpressure"
	codeUnavailable  = "unavailable"
	codeTimeout      = "timeout"
	codeInternal     = "internal_error"
)

// Wrap prefixes err with the handler operation that saw it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind reports a bare sentinel kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags cause with a sentinel kind so errors.Is matches both.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}

// classify picks the status and machine code for err.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidEdit),
		errors.Is(err, weights.ErrUnknownKey),
		errors.Is(err, weights.ErrUnknownKind):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, editqueue.ErrFull):
		return http.StatusTooManyRequests, codeBackpressure
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, editqueue.ErrClosed):
		return http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, codeTimeout
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
