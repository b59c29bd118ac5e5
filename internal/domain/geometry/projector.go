// Package geometry holds the hypothesis-independent and hypothesis-dependent
// coordinate transforms used by the z-scan: transverse projection, layer
// classification by radius, and pseudorapidity under a z-vertex hypothesis.
package geometry

import (
	"math"

	"github.com/okian/zfinder/internal/domain/model"
)

// Projection is the transverse view of a hit. It does not depend on the
// z hypothesis, so it is computed once per event.
type Projection struct {
	Phi float64 // azimuth in (-pi, pi]
	R   float64 // transverse radius
}

// Project returns the azimuth and transverse radius of (x, y).
// At the origin the azimuth follows math.Atan2(0, 0) == 0.
func Project(x, y float64) Projection {
	return Projection{
		Phi: math.Atan2(y, x),
		R:   math.Hypot(x, y),
	}
}

// ProjectAll projects every hit of an event.
func ProjectAll(hits []model.Hit) []Projection {
	out := make([]Projection, len(hits))
	for i, h := range hits {
		out[i] = Project(h.X, h.Y)
	}
	return out
}
