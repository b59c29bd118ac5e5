// Package hitfile reads delimited hit files, groups rows into events and
// writes per-event results.
package hitfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/pkg/metrics"
)

// hitFields is the number of leading fields consumed per row: event id, x, y, z.
const hitFields = 4

// Row is one parsed input line.
type Row struct {
	EventID int64
	Hit     model.Hit
	Line    int
}

// Reader parses "event_id,x,y,z" rows. Extra trailing fields are ignored,
// blank lines and lines starting with '#' are skipped.
type Reader struct {
	csv *csv.Reader
}

// NewReader wraps r with a hit row parser.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Next returns the next row, io.EOF at end of input, or an error wrapping
// ErrMalformedRow. After a malformed row the reader can continue.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Row{Line: perr.Line}, fmt.Errorf("%w: %v", ErrMalformedRow, perr)
		}
		return Row{}, err
	}

	line, _ := r.csv.FieldPos(0)
	if len(record) < hitFields {
		return Row{Line: line}, fmt.Errorf("%w: line %d: want %d fields, got %d", ErrMalformedRow, line, hitFields, len(record))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return Row{Line: line}, fmt.Errorf("%w: line %d: event id %q", ErrMalformedRow, line, record[0])
	}

	var coords [3]float64
	for i := range coords {
		field := strings.TrimSpace(record[i+1])
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Row{Line: line}, fmt.Errorf("%w: line %d: coordinate %q", ErrMalformedRow, line, field)
		}
		coords[i] = v
	}

	metrics.RecordRowRead()
	return Row{
		EventID: id,
		Hit:     model.Hit{X: coords[0], Y: coords[1], Z: coords[2]},
		Line:    line,
	}, nil
}
