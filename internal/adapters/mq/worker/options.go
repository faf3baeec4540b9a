package worker

import (
	"github.com/okian/modellab/pkg/logger"
)

// Option applies a configuration option to the Applier.
type Option func(*Applier)

// WithName sets the applier name used in logs.
func WithName(name string) Option {
	return func(w *Applier) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the applier.
func WithLogger(l logger.Logger) Option {
	return func(w *Applier) {
		if l != nil {
			w.logger = l
		}
	}
}
