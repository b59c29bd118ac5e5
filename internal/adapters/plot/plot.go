// Package plot renders per-event score profiles as PNG files.
package plot

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/okian/zfinder/internal/domain/zscan"
	"github.com/okian/zfinder/pkg/metrics"
)

// Profile writes one event_<id>.png per scanned event into a directory.
type Profile struct {
	mu      sync.Mutex
	dir     string
	limit   int // 0 = unlimited
	written int
	width   vg.Length
	height  vg.Length
}

// Option configures a Profile plotter.
type Option func(*Profile)

// WithLimit caps how many events are plotted. Zero or negative means no cap.
func WithLimit(n int) Option {
	return func(p *Profile) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithSize sets the image size in inches.
func WithSize(width, height float64) Option {
	return func(p *Profile) {
		if width > 0 && height > 0 {
			p.width = vg.Length(width) * vg.Inch
			p.height = vg.Length(height) * vg.Inch
		}
	}
}

// NewProfile creates the output directory and returns a plotter writing into it.
func NewProfile(dir string, opts ...Option) (*Profile, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot dir: %w", err)
	}
	p := &Profile{
		dir:    dir,
		width:  10 * vg.Inch,
		height: 4 * vg.Inch,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Written returns how many plots have been saved.
func (p *Profile) Written() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Path returns the file a given event is plotted to.
func (p *Profile) Path(eventID int64) string {
	return filepath.Join(p.dir, fmt.Sprintf("event_%d.png", eventID))
}

// Plot draws the score against the hypothesis value with a marker at the
// estimate. Once the limit is reached further calls are no-ops.
func (p *Profile) Plot(_ context.Context, eventID int64, res *zscan.Result) error {
	if res == nil || len(res.Scores) == 0 {
		return ErrEmptyProfile
	}

	p.mu.Lock()
	if p.limit > 0 && p.written >= p.limit {
		p.mu.Unlock()
		return nil
	}
	p.written++
	p.mu.Unlock()

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("event %d: z = %.4f (peak %d)", eventID, res.Estimate, res.PeakScore)
	pl.X.Label.Text = "z hypothesis"
	pl.Y.Label.Text = "matched triplets"

	pts := make(plotter.XYs, len(res.Scores))
	for s, score := range res.Scores {
		pts[s] = plotter.XY{X: res.Grid.Hypothesis(s), Y: float64(score)}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build profile line: %w", err)
	}
	line.Width = vg.Points(1)
	pl.Add(line)

	marker, err := plotter.NewLine(plotter.XYs{
		{X: res.Estimate, Y: 0},
		{X: res.Estimate, Y: float64(res.PeakScore)},
	})
	if err != nil {
		return fmt.Errorf("failed to build estimate marker: %w", err)
	}
	marker.Color = color.RGBA{R: 220, A: 255}
	marker.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	pl.Add(marker)
	pl.Legend.Add("score", line)
	pl.Legend.Add("estimate", marker)
	pl.Legend.Top = true

	if err := pl.Save(p.width, p.height, p.Path(eventID)); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	metrics.RecordPlotWritten()
	return nil
}
