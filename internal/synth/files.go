package synth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/zfinder/internal/domain/model"
)

// ErrMalformedLine reports an unreadable truth or result line.
var ErrMalformedLine = errors.New("malformed line")

// WriteHits writes events in the "event_id,x,y,z" hit format.
func WriteHits(w io.Writer, events []model.Event) (int, error) {
	cw := csv.NewWriter(w)
	rec := make([]string, 4)
	written := 0
	for _, ev := range events {
		rec[0] = strconv.FormatInt(ev.ID, 10)
		for _, h := range ev.Hits {
			rec[1] = strconv.FormatFloat(h.X, 'g', -1, 64)
			rec[2] = strconv.FormatFloat(h.Y, 'g', -1, 64)
			rec[3] = strconv.FormatFloat(h.Z, 'g', -1, 64)
			if err := cw.Write(rec); err != nil {
				return written, fmt.Errorf("write hit for event %d: %w", ev.ID, err)
			}
			written++
		}
	}
	cw.Flush()
	return written, cw.Error()
}

// WriteTruth writes "event_id,z0" lines.
func WriteTruth(w io.Writer, truths []Truth) error {
	cw := csv.NewWriter(w)
	for _, t := range truths {
		if err := cw.Write([]string{
			strconv.FormatInt(t.EventID, 10),
			strconv.FormatFloat(t.Z0, 'g', -1, 64),
		}); err != nil {
			return fmt.Errorf("write truth for event %d: %w", t.EventID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadValues reads "event_id,value[,...]" lines into a map keyed by event id.
// It accepts both truth files and scanner result files.
func ReadValues(r io.Reader) (map[int64]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	out := make(map[int64]float64)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: line %d", ErrMalformedLine, line)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: event id %q", ErrMalformedLine, line, rec[0])
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: value %q", ErrMalformedLine, line, rec[1])
		}
		out[id] = v
	}
}
