// Package worker runs the scan loop: it takes events off the queue, picks a
// tolerance, scans, and forwards results to a sink.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/zfinder/internal/adapters/mq/queue"
	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/internal/domain/tolerance"
	"github.com/okian/zfinder/internal/domain/zscan"
	"github.com/okian/zfinder/pkg/logger"
	"github.com/okian/zfinder/pkg/metrics"
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Scanner estimates the z-vertex of one event.
type Scanner interface {
	Scan(ctx context.Context, hits []model.Hit, tol model.Tolerance) (*zscan.Result, error)
}

// Sink receives one result per event, in queue order.
type Sink interface {
	Emit(ctx context.Context, r model.Result) error
}

// Plotter renders the score profile of a scanned event.
type Plotter interface {
	Plot(ctx context.Context, eventID int64, res *zscan.Result) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events and writes results using the provided interfaces.
type Worker interface {
	// Run processes events until the queue is drained or ctx is canceled.
	Run(ctx context.Context) error

	// Shutdown stops the worker after the event in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker scans events one at a time, so results leave in input order.
type InMemoryWorker struct {
	queue   Queue
	scanner Scanner
	sink    Sink
	plotter Plotter
	policy  tolerance.Policy
	name    string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, scanner Scanner, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		scanner:  scanner,
		sink:     sink,
		policy:   tolerance.Default(),
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns nil once the queue is drained, the
// context error on cancellation, or the first sink error.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.shutdown:
			return nil
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			if err := w.processEvent(ctx, event); err != nil {
				return err
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent scans a single event and hands the outcome to the sink.
// Scan failures become failed results; only cancellation and sink errors abort.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	tol, tier := w.policy.Select(event.Len())
	metrics.RecordTier(string(tier))
	metrics.RecordHitsPerEvent(event.Len())

	start := time.Now()
	res, err := w.scanner.Scan(ctx, event.Hits, tol)
	elapsed := time.Since(start)
	metrics.RecordScanLatency(float64(elapsed.Milliseconds()))

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	out := model.Result{
		EventID:   event.ID,
		Seq:       event.Seq,
		HitCount:  event.Len(),
		Tier:      string(tier),
		Tolerance: tol,
		Elapsed:   elapsed,
		Err:       err,
	}

	if err != nil {
		kind := zscan.Kind(err)
		metrics.RecordEventFailed(kind)
		w.logger.Warn(ctx, "scan failed for event",
			logger.Int64("event_id", event.ID),
			logger.Int("hits", event.Len()),
			logger.String("kind", kind),
			logger.Error(err),
		)
	} else {
		out.Estimate = res.Estimate
		out.PeakBin = res.PeakBin
		out.PeakScore = res.PeakScore
		metrics.RecordEventScanned()
		metrics.RecordPeakScore(res.PeakScore)
		w.logger.Debug(ctx, "event scanned",
			logger.Int64("event_id", event.ID),
			logger.Int("hits", event.Len()),
			logger.String("tier", string(tier)),
			logger.Float64("estimate", res.Estimate),
			logger.Int("peak_score", res.PeakScore),
			logger.Duration("elapsed", elapsed),
		)
		w.plot(ctx, event.ID, res)
	}

	if err := w.sink.Emit(ctx, out); err != nil {
		w.logger.Error(ctx, "result sink failed",
			logger.Int64("event_id", event.ID),
			logger.Error(err),
		)
		return fmt.Errorf("emit result for event %d: %w", event.ID, err)
	}
	return nil
}

// plot renders the profile if a plotter is set. Plot errors are logged only.
func (w *InMemoryWorker) plot(ctx context.Context, id int64, res *zscan.Result) {
	if w.plotter == nil {
		return
	}
	if err := w.plotter.Plot(ctx, id, res); err != nil {
		w.logger.Warn(ctx, "plot failed", logger.Int64("event_id", id), logger.Error(err))
	}
}
