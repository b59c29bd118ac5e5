// Package synth generates hit files with a known z-vertex per event and
// checks scanner output against that truth.
package synth

import (
	"time"

	"github.com/okian/zfinder/internal/domain/geometry"
)

// Config holds the generator and verification settings.
type Config struct {
	Events  int     // number of events to generate
	FirstID int64   // id of the first event; ids are consecutive
	Tracks  int     // straight tracks per event
	Noise   int     // uniformly scattered noise hits per event
	EtaMax  float64 // tracks are drawn with |eta| <= EtaMax
	ZSigma  float64 // spread of the true vertex around zero
	ZLimit  float64 // true vertices are redrawn until |z0| <= ZLimit
	Seed    uint64  // generator seed; equal seeds give equal files
	Bands   geometry.Bands

	HitsFile    string  // generated hit file
	TruthFile   string  // sidecar "event_id,z0" file
	ResultsFile string  // scanner output to verify; empty skips verification
	Tolerance   float64 // maximum |estimate - z0| counted as found
}

// DefaultConfig returns settings that produce clean, well-separated events.
func DefaultConfig() Config {
	return Config{
		Events:    100,
		FirstID:   1,
		Tracks:    20,
		Noise:     0,
		EtaMax:    1.5,
		ZSigma:    5,
		ZLimit:    15,
		Seed:      1,
		Bands:     geometry.DefaultBands(),
		HitsFile:  "hits.csv",
		TruthFile: "truth.csv",
		Tolerance: 0.1,
	}
}

// Truth is the generated vertex of one event.
type Truth struct {
	EventID int64
	Z0      float64
}

// Stats holds generation statistics.
type Stats struct {
	EventsGenerated int
	HitsWritten     int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
