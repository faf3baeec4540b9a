package config

import "errors"

// ErrLoadConfig wraps failures reading the file or environment layers.
var ErrLoadConfig = errors.New("load config")

// ErrInvalidConfig wraps a setting outside its allowed range.
var ErrInvalidConfig = errors.New("invalid config")
