package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidDataset = errors.New("invalid dataset")
	ErrInvalidEdit    = errors.New("invalid edit")
)
