// Package matching counts cross-layer hit pairs that agree in pseudorapidity
// and azimuth under one z hypothesis.
package matching

import (
	"math"
	"runtime"
	"sync"

	"github.com/okian/zfinder/internal/domain/geometry"
	"github.com/okian/zfinder/internal/domain/model"
)

// minChunk is the smallest outer-loop slice handed to a goroutine; below it
// the fan-out costs more than the comparisons.
const minChunk = 64

// Point is a hit's (eta, phi) under the current hypothesis.
type Point struct {
	Eta float64
	Phi float64
}

// Buckets holds the points of each classified layer.
type Buckets [geometry.NumLayers][]Point

// Reset empties every layer while keeping the backing arrays.
func (b *Buckets) Reset() {
	for i := range b {
		b[i] = b[i][:0]
	}
}

// Add appends a point to the given layer. Unclassified points are dropped.
func (b *Buckets) Add(l geometry.Layer, p Point) {
	if l < 0 || int(l) >= geometry.NumLayers {
		return
	}
	b[l] = append(b[l], p)
}

// layerPairs lists the layer combinations that are matched.
var layerPairs = [...][2]geometry.Layer{
	{geometry.Layer0, geometry.Layer1},
	{geometry.Layer0, geometry.Layer2},
	{geometry.Layer1, geometry.Layer2},
}

// Matches reports whether two points agree within tol. Both comparisons are
// strict and phi is compared without wrapping at +-pi.
func Matches(a, b Point, tol model.Tolerance) bool {
	return math.Abs(a.Eta-b.Eta) < tol.Eta && math.Abs(a.Phi-b.Phi) < tol.Phi
}

// CountPair counts the (i, j) cross pairs of a and b that match. It is
// symmetric: CountPair(a, b, tol) == CountPair(b, a, tol).
func CountPair(a, b []Point, tol model.Tolerance) int {
	n := 0
	for _, p := range a {
		for _, q := range b {
			if Matches(p, q, tol) {
				n++
			}
		}
	}
	return n
}

// Matcher counts matches over all three layer pairs.
type Matcher struct {
	workers int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithWorkers sets how many goroutines share one pair's outer loop.
// Values below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		m.workers = n
	}
}

// New creates a Matcher. It is sequential unless WithWorkers says otherwise.
func New(opts ...Option) *Matcher {
	m := &Matcher{workers: 1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Workers returns the configured parallelism.
func (m *Matcher) Workers() int { return m.workers }

// Count returns the total number of matching pairs over (0,1), (0,2) and (1,2).
// A hit may contribute to more than one pair; nothing is deduplicated.
func (m *Matcher) Count(b *Buckets, tol model.Tolerance) int {
	total := 0
	for _, pr := range layerPairs {
		total += m.countPair(b[pr[0]], b[pr[1]], tol)
	}
	return total
}

// countPair splits the outer loop into chunks, counts each chunk into its own
// slot and sums the slots once every goroutine is done.
func (m *Matcher) countPair(a, b []Point, tol model.Tolerance) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	chunks := m.workers
	if limit := len(a) / minChunk; chunks > limit {
		chunks = limit
	}
	if chunks <= 1 {
		return CountPair(a, b, tol)
	}

	partial := make([]int, chunks)
	size := (len(a) + chunks - 1) / chunks
	var wg sync.WaitGroup
	for c := 0; c < chunks; c++ {
		lo := c * size
		hi := min(lo+size, len(a))
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(slot int, part []Point) {
			defer wg.Done()
			partial[slot] = CountPair(part, b, tol)
		}(c, a[lo:hi])
	}
	wg.Wait()

	total := 0
	for _, n := range partial {
		total += n
	}
	return total
}
