// Package model contains domain models passed between layers.
package model

import "time"

// Hit is one recorded space point in detector coordinates.
type Hit struct {
	X float64
	Y float64
	Z float64
}

// Event groups the hits that share an event id in the input stream.
type Event struct {
	ID   int64 // event id as read from the input
	Seq  int   // zero-based position among finalised events
	Hits []Hit
}

// Len returns the hit multiplicity of the event.
func (e Event) Len() int { return len(e.Hits) }

// Tolerance is the pair of angular matching windows used by the triplet matcher.
type Tolerance struct {
	Eta float64
	Phi float64
}

// Valid reports whether both windows are strictly positive.
func (t Tolerance) Valid() bool { return t.Eta > 0 && t.Phi > 0 }

// Result is the per-event outcome handed to the output sink.
type Result struct {
	EventID   int64
	Seq       int
	HitCount  int
	Tier      string    // tolerance tier chosen for the event
	Tolerance Tolerance // tolerance pair actually used
	Estimate  float64   // refined z-vertex, valid only when Err is nil
	PeakBin   int
	PeakScore int
	Elapsed   time.Duration
	Err       error // typed scan failure; nil on success
}

// OK reports whether the event produced an estimate.
func (r Result) OK() bool { return r.Err == nil }
