package hitfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/internal/domain/zscan"
	"github.com/okian/zfinder/pkg/metrics"
)

// estimatePrecision matches the six significant digits of a default float stream.
const estimatePrecision = 6

// ResultWriter writes "event_id,estimate,hit_count" lines for scanned events and,
// when a failures writer is configured, "event_id,error_kind,hit_count" lines
// for failed ones. Lines are flushed after every result.
type ResultWriter struct {
	out      *csv.Writer
	failures *csv.Writer
	record   []string
}

// WriterOption configures a ResultWriter.
type WriterOption func(*ResultWriter)

// WithFailures routes failed results to w.
func WithFailures(w io.Writer) WriterOption {
	return func(rw *ResultWriter) {
		if w != nil {
			rw.failures = csv.NewWriter(w)
		}
	}
}

// NewResultWriter creates a writer emitting estimates to out.
func NewResultWriter(out io.Writer, opts ...WriterOption) *ResultWriter {
	rw := &ResultWriter{
		out:    csv.NewWriter(out),
		record: make([]string, 3),
	}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

// Emit writes one result. Failed results without a failures writer are dropped.
func (rw *ResultWriter) Emit(_ context.Context, r model.Result) error { //nolint:gocritic // hugeParam: results are passed by value through the sink
	rw.record[0] = strconv.FormatInt(r.EventID, 10)
	rw.record[2] = strconv.Itoa(r.HitCount)

	if !r.OK() {
		if rw.failures == nil {
			return nil
		}
		rw.record[1] = zscan.Kind(r.Err)
		return rw.write(rw.failures, r.EventID)
	}

	rw.record[1] = FormatEstimate(r.Estimate)
	if err := rw.write(rw.out, r.EventID); err != nil {
		return err
	}
	metrics.RecordResultWritten()
	return nil
}

func (rw *ResultWriter) write(w *csv.Writer, id int64) error {
	if err := w.Write(rw.record); err != nil {
		return fmt.Errorf("%w: event %d: %v", ErrWriteResult, id, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: event %d: %v", ErrWriteResult, id, err)
	}
	return nil
}

// FormatEstimate renders an estimate with six significant digits.
func FormatEstimate(z float64) string {
	return strconv.FormatFloat(z, 'g', estimatePrecision, 64)
}
