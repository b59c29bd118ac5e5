package zscan

import (
	"fmt"
	"strings"

	"github.com/okian/zfinder/internal/domain/geometry"
)

// EdgePolicy decides what refinement does when the peak sits on the first or
// last bin and one neighbour is missing.
type EdgePolicy int

const (
	// EdgeStrict fails the event with ErrOutOfRange.
	EdgeStrict EdgePolicy = iota
	// EdgeClamp averages over the neighbours that exist.
	EdgeClamp
)

func (p EdgePolicy) String() string {
	if p == EdgeClamp {
		return "clamp"
	}
	return "strict"
}

// ParseEdgePolicy accepts "strict" (or empty) and "clamp".
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return EdgeStrict, nil
	case "clamp":
		return EdgeClamp, nil
	default:
		return EdgeStrict, fmt.Errorf("unknown edge policy %q", s)
	}
}

// Option applies a configuration option to the Scanner.
type Option func(*Scanner)

// WithGrid sets the hypothesis grid.
func WithGrid(g Grid) Option {
	return func(s *Scanner) {
		s.grid = g
	}
}

// WithBands sets the layer band table.
func WithBands(b geometry.Bands) Option {
	return func(s *Scanner) {
		s.bands = b
	}
}

// WithWorkers sets how many goroutines sweep bins concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMatchWorkers sets the parallelism inside one bin's matcher.
// Values below 1 select runtime.NumCPU().
func WithMatchWorkers(n int) Option {
	return func(s *Scanner) {
		s.matchWorkers = n
	}
}

// WithEdgePolicy sets the refinement behaviour at the grid edges.
func WithEdgePolicy(p EdgePolicy) Option {
	return func(s *Scanner) {
		s.edge = p
	}
}
