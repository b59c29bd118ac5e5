package geometry

import "math"

// Pseudorapidity returns eta of a hit at longitudinal position z and transverse
// radius r, seen from a vertex at z = h.
//
// The backward hemisphere (z-h < 0) uses the reflected form ln(tan((pi-theta)/2))
// so the tangent argument stays away from pi/2 as theta approaches pi.
// r == 0 yields +Inf or -Inf; callers drop non-finite values with IsFinite.
func Pseudorapidity(z, r, h float64) float64 {
	dz := z - h
	theta := math.Atan2(r, dz)
	if dz >= 0 {
		return -math.Log(math.Tan(theta / 2))
	}
	return math.Log(math.Tan((math.Pi - theta) / 2))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
