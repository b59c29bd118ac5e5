package zscan

import (
	"context"
	"errors"
)

// Sentinel errors. Scan wraps them with event context; use errors.Is.
var (
	ErrInvalidGrid      = errors.New("invalid hypothesis grid")
	ErrEmptyEvent       = errors.New("event has no hits")
	ErrInvalidTolerance = errors.New("tolerance must be positive")
	ErrOutOfRange       = errors.New("peak neighbour outside hypothesis grid")
	ErrDegenerateScan   = errors.New("degenerate scan: no matches around peak")
)

// Failure kinds reported in logs, metrics and the failures file.
const (
	KindOutOfRange       = "out_of_range"
	KindDegenerateScan   = "degenerate_scan"
	KindEmptyEvent       = "empty_event"
	KindInvalidTolerance = "invalid_tolerance"
	KindCanceled         = "canceled"
	KindUnknown          = "unknown"
)

// Kind classifies a scan error into one of the failure kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, ErrDegenerateScan):
		return KindDegenerateScan
	case errors.Is(err, ErrEmptyEvent):
		return KindEmptyEvent
	case errors.Is(err, ErrInvalidTolerance):
		return KindInvalidTolerance
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
