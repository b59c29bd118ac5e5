// Package service wires the scan pipeline: hit reader and segmenter feed a
// bounded queue, one worker scans events in order, and results go to the
// output writer.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/zfinder/internal/adapters/hitfile"
	eventqueue "github.com/okian/zfinder/internal/adapters/mq/queue"
	"github.com/okian/zfinder/internal/adapters/mq/worker"
	"github.com/okian/zfinder/internal/domain/dedupe"
	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/internal/domain/tolerance"
	"github.com/okian/zfinder/internal/domain/zscan"
	"github.com/okian/zfinder/pkg/logger"
	"github.com/okian/zfinder/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize  = 64
	defaultDedupeSize = 1 << 16
)

// Summary describes one completed run.
type Summary struct {
	RunID          string
	EventsRead     int // finalised events, skipped ones included
	EventsSkipped  int
	EventsScanned  int
	EventsFailed   int
	FailuresByKind map[string]int
	MalformedRows  int
	MeanEstimate   float64
	StdDevEstimate float64
	Duration       time.Duration
}

// Service runs the scan pipeline over one input stream.
type Service struct {
	scanner worker.Scanner
	plotter worker.Plotter
	policy  tolerance.Policy

	queueSize     int
	dedupeSize    int
	skipEvents    int
	skipMalformed bool
	failures      io.Writer

	logger logger.Logger

	progress progress
}

// progress is the live view served by GetStats while a run is in flight.
type progress struct {
	runID   atomic.Value // string
	running atomic.Bool
	read    atomic.Int64
	skipped atomic.Int64
	scanned atomic.Int64
	failed  atomic.Int64
	queue   atomic.Pointer[eventqueue.InMemoryQueue]
	started atomic.Int64 // unix nanoseconds
}

func (p *progress) reset(runID string, q *eventqueue.InMemoryQueue) {
	p.runID.Store(runID)
	p.read.Store(0)
	p.skipped.Store(0)
	p.scanned.Store(0)
	p.failed.Store(0)
	p.queue.Store(q)
	p.started.Store(time.Now().UnixNano())
	p.running.Store(true)
}

// New constructs a Service. Without WithScanner a scanner with the default
// grid and bands is built.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		policy:     tolerance.Default(),
		queueSize:  defaultQueueSize,
		dedupeSize: defaultDedupeSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if s.scanner == nil {
		sc, err := zscan.New()
		if err != nil {
			return nil, fmt.Errorf("build scanner: %w", err)
		}
		s.scanner = sc
	}
	if b, ok := s.scanner.(interface{ Bins() int }); ok {
		metrics.UpdateGridBins(b.Bins())
	}
	return s, nil
}

// collector forwards results to the writer and keeps what the summary needs.
// Only the worker goroutine calls Emit.
type collector struct {
	next      worker.Sink
	estimates []float64
	failed    map[string]int
	progress  *progress
}

func (c *collector) Emit(ctx context.Context, r model.Result) error { //nolint:gocritic // hugeParam: matches worker.Sink
	if r.OK() {
		c.estimates = append(c.estimates, r.Estimate)
		c.progress.scanned.Add(1)
	} else {
		c.failed[zscan.Kind(r.Err)]++
		c.progress.failed.Add(1)
	}
	return c.next.Emit(ctx, r)
}

// GetStats returns a snapshot of the current or most recent run.
func (s *Service) GetStats() map[string]interface{} {
	p := &s.progress
	runID, _ := p.runID.Load().(string)
	stats := map[string]interface{}{
		"run_id":         runID,
		"running":        p.running.Load(),
		"events_read":    p.read.Load(),
		"events_skipped": p.skipped.Load(),
		"events_scanned": p.scanned.Load(),
		"events_failed":  p.failed.Load(),
		"queue_length":   0,
	}
	if q := p.queue.Load(); q != nil {
		stats["queue_length"] = q.Len(context.Background())
		stats["queue_capacity"] = q.Capacity()
	}
	if started := p.started.Load(); started > 0 && p.running.Load() {
		stats["elapsed_seconds"] = time.Since(time.Unix(0, started)).Seconds()
	}
	return stats
}

// Run reads hit rows from in until EOF and writes one result line per scanned
// event to out. Per-event scan failures are counted, not returned; malformed
// input (unless skipped), write failures and cancellation end the run.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}
	log := s.logger

	log.Info(ctx, "run started",
		logger.String("run_id", sum.RunID),
		logger.Int("queue_size", s.queueSize),
		logger.Int("skip_events", s.skipEvents),
		logger.Bool("skip_malformed", s.skipMalformed),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writerOpts []hitfile.WriterOption
	if s.failures != nil {
		writerOpts = append(writerOpts, hitfile.WithFailures(s.failures))
	}
	sink := &collector{
		next:     hitfile.NewResultWriter(out, writerOpts...),
		failed:   make(map[string]int),
		progress: &s.progress,
	}

	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.progress.reset(sum.RunID, q)
	defer s.progress.running.Store(false)
	workerOpts := []worker.Option{
		worker.WithPolicy(s.policy),
		worker.WithLogger(log.Named("worker")),
	}
	if s.plotter != nil {
		workerOpts = append(workerOpts, worker.WithPlotter(s.plotter))
	}
	w := worker.NewInMemoryWorker(q, s.scanner, sink, workerOpts...)

	workerErr := make(chan error, 1)
	go func() {
		err := w.Run(ctx)
		if err != nil {
			cancel()
		}
		workerErr <- err
	}()

	seg := hitfile.NewSegmenter(hitfile.NewReader(in),
		hitfile.WithSkipMalformed(s.skipMalformed),
		hitfile.WithTracker(dedupe.NewInMemoryTracker(dedupe.WithMaxSize(s.dedupeSize))),
		hitfile.WithLogger(log.Named("segmenter")),
	)
	readErr := s.produce(ctx, seg, q, &sum)

	_ = q.Close()
	werr := <-workerErr

	sum.MalformedRows = seg.Malformed()
	sum.FailuresByKind = sink.failed
	for _, n := range sink.failed {
		sum.EventsFailed += n
	}
	sum.EventsScanned = len(sink.estimates)
	switch len(sink.estimates) {
	case 0:
	case 1:
		sum.MeanEstimate = sink.estimates[0]
	default:
		sum.MeanEstimate, sum.StdDevEstimate = stat.MeanStdDev(sink.estimates, nil)
	}
	sum.Duration = time.Since(start)

	err := firstError(werr, readErr)
	if err != nil {
		log.Error(ctx, "run aborted", logger.String("run_id", sum.RunID), logger.Error(err))
		return sum, err
	}

	log.Info(ctx, "run finished",
		logger.String("run_id", sum.RunID),
		logger.Int("events_read", sum.EventsRead),
		logger.Int("events_skipped", sum.EventsSkipped),
		logger.Int("events_scanned", sum.EventsScanned),
		logger.Int("events_failed", sum.EventsFailed),
		logger.Any("failures_by_kind", sum.FailuresByKind),
		logger.Int("malformed_rows", sum.MalformedRows),
		logger.Float64("mean_estimate", sum.MeanEstimate),
		logger.Float64("stddev_estimate", sum.StdDevEstimate),
		logger.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// produce moves finalised events into the queue until the input ends.
func (s *Service) produce(ctx context.Context, seg *hitfile.Segmenter, q eventqueue.Queue, sum *Summary) error {
	for {
		ev, err := seg.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		sum.EventsRead++
		s.progress.read.Add(1)

		if ev.Seq < s.skipEvents {
			sum.EventsSkipped++
			s.progress.skipped.Add(1)
			metrics.RecordEventSkipped()
			continue
		}

		if err := q.Enqueue(ctx, ev); err != nil {
			return fmt.Errorf("enqueue event %d: %w", ev.ID, err)
		}
	}
}

// firstError prefers a worker failure over the producer error it caused.
func firstError(werr, readErr error) error {
	if werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	if readErr != nil {
		return readErr
	}
	return werr
}
