package config

import "errors"

// Sentinel errors returned by Load and Validate.
var (
	// ErrInvalidConfig marks a setting outside its allowed range.
	ErrInvalidConfig = errors.New("invalid zfinder config")
	// ErrLoadConfig marks an unreadable config file or environment.
	ErrLoadConfig = errors.New("load zfinder config")
)
