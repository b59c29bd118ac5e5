package geometry

import (
	"fmt"
	"math"
)

// NumLayers is the number of classified detector layers.
const NumLayers = 3

// Layer identifies the radial band a hit falls into.
type Layer int

// Layer values. Classified layers double as bucket indexes.
const (
	Unclassified Layer = -1
	Layer0       Layer = 0
	Layer1       Layer = 1
	Layer2       Layer = 2
)

func (l Layer) String() string {
	switch l {
	case Layer0:
		return "layer0"
	case Layer1:
		return "layer1"
	case Layer2:
		return "layer2"
	default:
		return "unclassified"
	}
}

// Band is an inclusive transverse-radius range.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether r lies in [Min, Max].
func (b Band) Contains(r float64) bool {
	return r >= b.Min && r <= b.Max
}

func (b Band) overlaps(o Band) bool {
	return b.Min <= o.Max && o.Min <= b.Max
}

// Bands is the radial band table, indexed by Layer.
type Bands [NumLayers]Band

// DefaultBands returns the three barrel layer bands of the vertex tracker.
func DefaultBands() Bands {
	return Bands{
		{Min: 2.37, Max: 2.80},
		{Min: 3.14, Max: 3.59},
		{Min: 3.91, Max: 4.3925},
	}
}

// Classify maps a transverse radius onto its layer. The first matching band
// wins; Validate guarantees at most one band can match.
func (bs Bands) Classify(r float64) Layer {
	for i, b := range bs {
		if b.Contains(r) {
			return Layer(i)
		}
	}
	return Unclassified
}

// Validate rejects empty, inverted, non-finite or overlapping bands.
func (bs Bands) Validate() error {
	for i, b := range bs {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
			return fmt.Errorf("%w: %s bound is not finite", ErrInvalidBand, Layer(i))
		}
		if b.Min < 0 || b.Min > b.Max {
			return fmt.Errorf("%w: %s [%g, %g]", ErrInvalidBand, Layer(i), b.Min, b.Max)
		}
	}
	for i := 0; i < NumLayers; i++ {
		for j := i + 1; j < NumLayers; j++ {
			if bs[i].overlaps(bs[j]) {
				return fmt.Errorf("%w: %s and %s", ErrOverlappingBands, Layer(i), Layer(j))
			}
		}
	}
	return nil
}
