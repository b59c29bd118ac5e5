// Package tolerance selects the matching windows for an event from its hit
// multiplicity. Dense events get narrower windows so the combinatorial
// background does not swamp the peak.
package tolerance

import (
	"fmt"

	"github.com/okian/zfinder/internal/domain/model"
)

// Default policy values.
const (
	DefaultLargeCut = 630
	defaultSmall    = 0.008
	defaultLarge    = 0.0008
	defaultXLarge   = 0.0003
)

// Tier names the tolerance pair chosen for an event.
type Tier string

// Tiers, keyed by event size.
const (
	TierSmall      Tier = "small"
	TierLarge      Tier = "large"
	TierExtraLarge Tier = "xlarge"
)

// Policy maps hit multiplicity to a tolerance pair.
type Policy struct {
	// LargeCut (ls_cut): events with more hits than this use Large.
	LargeCut int
	// ExtraLargeCut (xl_cut): events with more hits than this use ExtraLarge.
	// Zero disables the tier.
	ExtraLargeCut int

	Small      model.Tolerance
	Large      model.Tolerance
	ExtraLarge model.Tolerance
}

// Default returns the policy used for the vertex tracker.
func Default() Policy {
	return Policy{
		LargeCut:      DefaultLargeCut,
		ExtraLargeCut: 0,
		Small:         model.Tolerance{Eta: defaultSmall, Phi: defaultSmall},
		Large:         model.Tolerance{Eta: defaultLarge, Phi: defaultLarge},
		ExtraLarge:    model.Tolerance{Eta: defaultXLarge, Phi: defaultXLarge},
	}
}

// Select returns the tolerance pair and tier for an event with hitCount hits.
func (p Policy) Select(hitCount int) (model.Tolerance, Tier) {
	switch {
	case p.ExtraLargeCut > 0 && hitCount > p.ExtraLargeCut:
		return p.ExtraLarge, TierExtraLarge
	case hitCount > p.LargeCut:
		return p.Large, TierLarge
	default:
		return p.Small, TierSmall
	}
}

// Validate checks that every tier has positive windows and the cuts are ordered.
func (p Policy) Validate() error {
	for tier, tol := range map[Tier]model.Tolerance{
		TierSmall:      p.Small,
		TierLarge:      p.Large,
		TierExtraLarge: p.ExtraLarge,
	} {
		if !tol.Valid() {
			return fmt.Errorf("%w: %s tier %+v", ErrInvalidPolicy, tier, tol)
		}
	}
	if p.LargeCut < 0 || p.ExtraLargeCut < 0 {
		return fmt.Errorf("%w: negative cut", ErrInvalidPolicy)
	}
	if p.ExtraLargeCut > 0 && p.ExtraLargeCut <= p.LargeCut {
		return fmt.Errorf("%w: xl_cut %d must exceed ls_cut %d", ErrInvalidPolicy, p.ExtraLargeCut, p.LargeCut)
	}
	return nil
}
