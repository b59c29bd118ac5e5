package service

import (
	"io"

	"github.com/okian/zfinder/internal/adapters/mq/worker"
	"github.com/okian/zfinder/internal/domain/tolerance"
	"github.com/okian/zfinder/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScanner sets the scanner used for every event.
func WithScanner(s worker.Scanner) Option {
	return func(svc *Service) {
		if s != nil {
			svc.scanner = s
		}
	}
}

// WithPolicy sets the tolerance policy.
func WithPolicy(p tolerance.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithPlotter enables score-profile plots.
func WithPlotter(p worker.Plotter) Option {
	return func(s *Service) {
		if p != nil {
			s.plotter = p
		}
	}
}

// WithQueueSize sets how many events may wait for the scanner.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSkipEvents skips the first n finalised events.
func WithSkipEvents(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.skipEvents = n
		}
	}
}

// WithSkipMalformed logs and skips malformed rows instead of aborting.
func WithSkipMalformed(skip bool) Option {
	return func(s *Service) {
		s.skipMalformed = skip
	}
}

// WithFailures writes failed events to w.
func WithFailures(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.failures = w
		}
	}
}

// WithDedupeSize bounds how many event ids are remembered for reuse warnings.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
