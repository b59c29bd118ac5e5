package zscan

import (
	"fmt"
	"math"
)

// Default hypothesis grid: the full stave length with 25 micron steps.
const (
	DefaultZMin = -21.94
	DefaultZMax = 20.22
	DefaultStep = 0.0025
)

// MaxBins bounds the number of hypotheses a grid may hold.
const MaxBins = 100_000_000

// Grid is the set of z-vertex hypotheses swept for every event.
type Grid struct {
	ZMin float64
	ZMax float64
	Step float64
}

// DefaultGrid returns the default hypothesis grid.
func DefaultGrid() Grid {
	return Grid{ZMin: DefaultZMin, ZMax: DefaultZMax, Step: DefaultStep}
}

// Bins returns the number of hypotheses ZMin + s*Step that do not exceed
// ZMax, allowing only rounding-level overshoot. Grids rejected by Validate
// have no bins.
func (g Grid) Bins() int {
	q := (g.ZMax - g.ZMin) / g.Step
	if !(q >= 0 && q < MaxBins) {
		return 0
	}
	n := int(math.Floor(q))
	limit := g.ZMax + g.slack()
	for n > 0 && g.Hypothesis(n) > limit {
		n--
	}
	for g.Hypothesis(n+1) <= limit {
		n++
	}
	return n + 1
}

// slack is the rounding allowance on the last hypothesis: a billionth of a
// step plus a few ulps of the bounds.
func (g Grid) slack() float64 {
	return 1e-9*g.Step + 1e-12*math.Max(math.Abs(g.ZMin), math.Abs(g.ZMax))
}

// Hypothesis returns the z value of bin s.
func (g Grid) Hypothesis(s int) float64 {
	return g.ZMin + float64(s)*g.Step
}

// Hypotheses returns every hypothesis value in bin order.
func (g Grid) Hypotheses() []float64 {
	out := make([]float64, g.Bins())
	for s := range out {
		out[s] = g.Hypothesis(s)
	}
	return out
}

// Nearest returns the bin whose hypothesis is closest to z, clamped to the grid.
func (g Grid) Nearest(z float64) int {
	s := int(math.Round((z - g.ZMin) / g.Step))
	return max(0, min(s, g.Bins()-1))
}

// Validate rejects grids that cannot be swept.
func (g Grid) Validate() error {
	for _, v := range []float64{g.ZMin, g.ZMax, g.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound in %+v", ErrInvalidGrid, g)
		}
	}
	if g.Step <= 0 {
		return fmt.Errorf("%w: step %g must be positive", ErrInvalidGrid, g.Step)
	}
	if g.ZMax < g.ZMin {
		return fmt.Errorf("%w: zmax %g below zmin %g", ErrInvalidGrid, g.ZMax, g.ZMin)
	}
	if q := (g.ZMax - g.ZMin) / g.Step; math.IsInf(q, 0) || q >= MaxBins {
		return fmt.Errorf("%w: step %g gives more than %d bins", ErrInvalidGrid, g.Step, MaxBins)
	}
	return nil
}
