package repository

import "errors"

// Sentinel kinds for dataset loading errors. Contract violations found after
// decoding additionally wrap model.ErrInvalidDataset.
var (
	ErrLoadDataset       = errors.New("load dataset failed")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrDatasetTooLarge   = errors.New("dataset file too large")
)
