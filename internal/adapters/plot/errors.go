package plot

import "errors"

// Sentinel errors for the profile plotter.
var (
	ErrNoDir        = errors.New("plot directory not set")
	ErrEmptyProfile = errors.New("no scores to plot")
)
