// Package worker runs the scan loop: it takes events off the queue, picks a
// tolerance, scans, and forwards results to a sink.
package worker

import (
	"github.com/okian/zfinder/internal/domain/tolerance"
	"github.com/okian/zfinder/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithPolicy sets the tolerance policy applied per event.
func WithPolicy(p tolerance.Policy) Option {
	return func(w *InMemoryWorker) {
		w.policy = p
	}
}

// WithPlotter enables a score-profile plot for every scanned event.
func WithPlotter(p Plotter) Option {
	return func(w *InMemoryWorker) {
		if p != nil {
			w.plotter = p
		}
	}
}
