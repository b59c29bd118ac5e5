package geometry

import "errors"

// Sentinel errors for band validation.
var (
	ErrInvalidBand      = errors.New("invalid layer band")
	ErrOverlappingBands = errors.New("overlapping layer bands")
)
