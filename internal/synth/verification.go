package synth

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Report compares scanner estimates with the generated truth.
type Report struct {
	Events       int     // events in the truth file
	Estimated    int     // events with an estimate
	Missing      []int64 // truth events without an estimate, ascending
	Within       int     // estimates within the tolerance
	MeanResidual float64 // mean of estimate - z0
	StdResidual  float64
	MaxResidual  float64 // largest |estimate - z0|
}

// Efficiency is the fraction of truth events found within tolerance.
func (r Report) Efficiency() float64 {
	if r.Events == 0 {
		return 0
	}
	return float64(r.Within) / float64(r.Events)
}

// Verify matches estimates to truth by event id.
func Verify(truth, estimates map[int64]float64, tolerance float64) Report {
	rep := Report{Events: len(truth)}
	residuals := make([]float64, 0, len(estimates))

	ids := make([]int64, 0, len(truth))
	for id := range truth {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		z0 := truth[id]
		est, ok := estimates[id]
		if !ok {
			rep.Missing = append(rep.Missing, id)
			continue
		}
		d := est - z0
		residuals = append(residuals, d)
		if math.Abs(d) <= tolerance {
			rep.Within++
		}
		rep.MaxResidual = math.Max(rep.MaxResidual, math.Abs(d))
	}

	rep.Estimated = len(residuals)
	switch len(residuals) {
	case 0:
	case 1:
		rep.MeanResidual = residuals[0]
	default:
		rep.MeanResidual, rep.StdResidual = stat.MeanStdDev(residuals, nil)
	}
	return rep
}
