package zscan

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Refine locates the best-scoring bin (first one on ties) and returns the
// score-weighted mean of the hypotheses at the peak and its two neighbours.
func Refine(hyps []float64, scores []int, edge EdgePolicy) (estimate float64, peak int, err error) {
	if len(scores) == 0 || len(scores) != len(hyps) {
		return 0, 0, fmt.Errorf("%w: %d scores for %d hypotheses", ErrInvalidGrid, len(scores), len(hyps))
	}

	w := make([]float64, len(scores))
	for i, n := range scores {
		w[i] = float64(n)
	}

	peak = floats.MaxIdx(w)
	if w[peak] == 0 {
		return 0, peak, ErrDegenerateScan
	}

	lo, hi := peak-1, peak+1
	if lo < 0 || hi >= len(w) {
		if edge == EdgeStrict {
			return 0, peak, fmt.Errorf("%w: peak at bin %d of %d", ErrOutOfRange, peak, len(w))
		}
		lo, hi = max(lo, 0), min(hi, len(w)-1)
	}

	sum := floats.Sum(w[lo : hi+1])
	if sum == 0 {
		return 0, peak, ErrDegenerateScan
	}
	return floats.Dot(hyps[lo:hi+1], w[lo:hi+1]) / sum, peak, nil
}
