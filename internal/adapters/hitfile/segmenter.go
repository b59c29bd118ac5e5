package hitfile

import (
	"context"
	"errors"
	"io"

	"github.com/okian/zfinder/internal/domain/dedupe"
	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/pkg/logger"
	"github.com/okian/zfinder/pkg/metrics"
)

// RowSource yields parsed rows; *Reader implements it.
type RowSource interface {
	Next() (Row, error)
}

// Segmenter groups contiguous rows with the same event id into events.
// An event is finalised as soon as the id changes or the input ends.
type Segmenter struct {
	src           RowSource
	tracker       dedupe.Tracker
	skipMalformed bool
	logger        logger.Logger

	cur       *model.Event
	seq       int
	malformed int
	done      bool
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithSkipMalformed makes malformed rows a logged warning instead of a fatal error.
func WithSkipMalformed(skip bool) SegmenterOption {
	return func(s *Segmenter) {
		s.skipMalformed = skip
	}
}

// WithTracker sets the tracker used to report ids that reappear.
func WithTracker(t dedupe.Tracker) SegmenterOption {
	return func(s *Segmenter) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithLogger sets a custom logger for the segmenter.
func WithLogger(l logger.Logger) SegmenterOption {
	return func(s *Segmenter) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSegmenter creates a Segmenter reading from src.
func NewSegmenter(src RowSource, opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		src:     src,
		tracker: dedupe.NewInMemoryTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("segmenter")
	}
	return s
}

// Malformed returns how many malformed rows were skipped.
func (s *Segmenter) Malformed() int { return s.malformed }

// Next returns the next finalised event, or io.EOF once the input is exhausted.
func (s *Segmenter) Next(ctx context.Context) (model.Event, error) {
	if s.done {
		return model.Event{}, io.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			return model.Event{}, err
		}

		row, err := s.src.Next()
		switch {
		case errors.Is(err, io.EOF):
			s.done = true
			if s.cur == nil {
				return model.Event{}, io.EOF
			}
			return s.finalise(), nil
		case errors.Is(err, ErrMalformedRow) && s.skipMalformed:
			s.malformed++
			metrics.RecordRowMalformed()
			s.logger.Warn(ctx, "skipping malformed row", logger.Int("line", row.Line), logger.Error(err))
			continue
		case err != nil:
			if errors.Is(err, ErrMalformedRow) {
				metrics.RecordRowMalformed()
			}
			return model.Event{}, err
		}

		if s.cur != nil && s.cur.ID == row.EventID {
			s.cur.Hits = append(s.cur.Hits, row.Hit)
			continue
		}

		var ev model.Event
		ready := s.cur != nil
		if ready {
			ev = s.finalise()
		}
		s.start(ctx, row)
		if ready {
			return ev, nil
		}
	}
}

// start opens a new event with row as its first hit.
func (s *Segmenter) start(ctx context.Context, row Row) {
	if s.tracker.SeenAndRecord(ctx, row.EventID) {
		metrics.RecordEventIDReused()
		s.logger.Warn(ctx, "event id reappeared after another event; treating as a new event",
			logger.Int64("event_id", row.EventID),
			logger.Int("line", row.Line),
		)
	}
	s.cur = &model.Event{ID: row.EventID, Hits: []model.Hit{row.Hit}}
}

// finalise hands out the open event and assigns its sequence number.
func (s *Segmenter) finalise() model.Event {
	ev := *s.cur
	ev.Seq = s.seq
	s.seq++
	s.cur = nil
	metrics.RecordEventRead()
	return ev
}
