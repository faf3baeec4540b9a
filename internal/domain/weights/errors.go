package weights

import "errors"

// Sentinel kinds for weight vector errors.
var (
	ErrUnknownKind = errors.New("unknown weight vector kind")
	ErrUnknownKey  = errors.New("unknown weight key")
)
