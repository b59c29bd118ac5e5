// Package zscan estimates an event's z vertex by sweeping a grid of vertex
// hypotheses and scoring each one by the number of cross-layer hit pairs that
// line up in pseudorapidity and azimuth.
package zscan

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/okian/zfinder/internal/domain/geometry"
	"github.com/okian/zfinder/internal/domain/matching"
	"github.com/okian/zfinder/internal/domain/model"
)

// Result is a completed scan of one event.
type Result struct {
	Estimate  float64
	PeakBin   int
	PeakScore int
	Scores    []int // one match count per grid bin
	Grid      Grid
	Tolerance model.Tolerance
	HitCount  int
}

// Scanner runs the hypothesis sweep. It holds only immutable configuration
// and is safe for concurrent use.
type Scanner struct {
	grid         Grid
	hyps         []float64
	bands        geometry.Bands
	workers      int
	matchWorkers int
	matcher      *matching.Matcher
	edge         EdgePolicy
}

// New creates a Scanner with the default grid and bands unless overridden.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		grid:         DefaultGrid(),
		bands:        geometry.DefaultBands(),
		workers:      runtime.NumCPU(),
		matchWorkers: 1,
		edge:         EdgeStrict,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.grid.Validate(); err != nil {
		return nil, err
	}
	if err := s.bands.Validate(); err != nil {
		return nil, err
	}

	s.hyps = s.grid.Hypotheses()
	s.matcher = matching.New(matching.WithWorkers(s.matchWorkers))
	return s, nil
}

// Grid returns the hypothesis grid.
func (s *Scanner) Grid() Grid { return s.grid }

// Bins returns the number of hypotheses swept per event.
func (s *Scanner) Bins() int { return len(s.hyps) }

// Scan sweeps every hypothesis for hits and refines the peak. It returns
// either a complete Result or a typed error, never both.
func (s *Scanner) Scan(ctx context.Context, hits []model.Hit, tol model.Tolerance) (*Result, error) {
	scores, err := s.Sweep(ctx, hits, tol)
	if err != nil {
		return nil, err
	}

	estimate, peak, err := Refine(s.hyps, scores, s.edge)
	if err != nil {
		return nil, err
	}

	return &Result{
		Estimate:  estimate,
		PeakBin:   peak,
		PeakScore: scores[peak],
		Scores:    scores,
		Grid:      s.grid,
		Tolerance: tol,
		HitCount:  len(hits),
	}, nil
}

// member is a classified hit with its cached transverse projection.
type member struct {
	z     float64
	r     float64
	phi   float64
	layer geometry.Layer
}

// Sweep returns the match count of every hypothesis bin. Bins are scored
// concurrently; each worker writes only the slots of the bins it claimed.
func (s *Scanner) Sweep(ctx context.Context, hits []model.Hit, tol model.Tolerance) ([]int, error) {
	if len(hits) == 0 {
		return nil, ErrEmptyEvent
	}
	if !tol.Valid() {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidTolerance, tol)
	}

	// Azimuth, radius and therefore layer do not depend on the hypothesis.
	var perLayer [geometry.NumLayers]int
	members := make([]member, 0, len(hits))
	for i, p := range geometry.ProjectAll(hits) {
		layer := s.bands.Classify(p.R)
		if layer == geometry.Unclassified {
			continue
		}
		perLayer[layer]++
		members = append(members, member{z: hits[i].Z, r: p.R, phi: p.Phi, layer: layer})
	}

	scores := make([]int, len(s.hyps))
	if len(members) == 0 {
		return scores, nil
	}

	workers := min(s.workers, len(s.hyps))
	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var b matching.Buckets
			for l := range b {
				b[l] = make([]matching.Point, 0, perLayer[l])
			}
			for {
				bin := int(next.Add(1) - 1)
				if bin >= len(s.hyps) || ctx.Err() != nil {
					return
				}
				scores[bin] = s.scoreBin(&b, members, s.hyps[bin], tol)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// scoreBin buckets every member's (eta, phi) under hypothesis h and counts matches.
func (s *Scanner) scoreBin(b *matching.Buckets, members []member, h float64, tol model.Tolerance) int {
	b.Reset()
	for _, m := range members {
		eta := geometry.Pseudorapidity(m.z, m.r, h)
		if !geometry.IsFinite(eta) {
			continue
		}
		b.Add(m.layer, matching.Point{Eta: eta, Phi: m.phi})
	}
	return s.matcher.Count(b, tol)
}
