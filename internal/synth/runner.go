package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
)

// Generate builds cfg.Events events in id order.
func Generate(ctx context.Context, cfg Config) ([]model.Event, []Truth, error) {
	gen := NewGenerator(cfg)
	events := make([]model.Event, 0, cfg.Events)
	truths := make([]Truth, 0, cfg.Events)
	for i := 0; i < cfg.Events; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("generation canceled: %w", err)
		}
		ev, tr := gen.Event(cfg.FirstID + int64(i))
		ev.Seq = i
		events = append(events, ev)
		truths = append(truths, tr)
	}
	return events, truths, nil
}

// Run generates events and writes the hit and truth files.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "generating synthetic events",
		logger.Int("events", cfg.Events),
		logger.Int("tracks", cfg.Tracks),
		logger.Int("noise", cfg.Noise),
		logger.Any("seed", cfg.Seed),
		logger.String("hits", cfg.HitsFile),
		logger.String("truth", cfg.TruthFile),
	)

	events, truths, err := Generate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	stats.EventsGenerated = len(events)

	if err := writeFile(cfg.HitsFile, func(f *os.File) error {
		n, err := WriteHits(f, events)
		stats.HitsWritten = n
		return err
	}); err != nil {
		return nil, fmt.Errorf("hit file: %w", err)
	}

	if cfg.TruthFile != "" {
		if err := writeFile(cfg.TruthFile, func(f *os.File) error {
			return WriteTruth(f, truths)
		}); err != nil {
			return nil, fmt.Errorf("truth file: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	logger.Get().Info(ctx, "synthetic events written",
		logger.Int("events", stats.EventsGenerated),
		logger.Int("hits", stats.HitsWritten),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// VerifyFiles compares cfg.ResultsFile against cfg.TruthFile.
func VerifyFiles(ctx context.Context, cfg Config) (Report, error) {
	truth, err := readFile(cfg.TruthFile)
	if err != nil {
		return Report{}, fmt.Errorf("truth file: %w", err)
	}
	estimates, err := readFile(cfg.ResultsFile)
	if err != nil {
		return Report{}, fmt.Errorf("results file: %w", err)
	}

	rep := Verify(truth, estimates, cfg.Tolerance)
	logger.Get().Info(ctx, "verification finished",
		logger.Int("events", rep.Events),
		logger.Int("estimated", rep.Estimated),
		logger.Int("within", rep.Within),
		logger.Int("missing", len(rep.Missing)),
		logger.Float64("efficiency", rep.Efficiency()),
		logger.Float64("mean_residual", rep.MeanResidual),
		logger.Float64("std_residual", rep.StdResidual),
		logger.Float64("max_residual", rep.MaxResidual),
	)
	return rep, nil
}

func writeFile(name string, fill func(*os.File) error) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readFile(name string) (map[int64]float64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadValues(f)
}
