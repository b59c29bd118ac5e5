// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/zfinder/internal/domain/geometry"
	"github.com/okian/zfinder/internal/domain/model"
	"github.com/okian/zfinder/internal/domain/tolerance"
	"github.com/okian/zfinder/internal/domain/zscan"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log records.
	LogFormat string `koanf:"log_format"`

	// Input is the hit file to read; empty reads stdin.
	Input string `koanf:"input"`

	// Output is the result file, opened for append; empty writes stdout.
	Output string `koanf:"output"`

	// Failures optionally receives "event_id,error_kind,hit_count" lines.
	Failures string `koanf:"failures"`

	// Hypothesis grid.
	ZMin     float64 `koanf:"zmin"`
	ZMax     float64 `koanf:"zmax"`
	ScanStep float64 `koanf:"scan_step"`

	// Radial bands of the three layers, inclusive on both ends.
	Layer0Min float64 `koanf:"layer0_min"`
	Layer0Max float64 `koanf:"layer0_max"`
	Layer1Min float64 `koanf:"layer1_min"`
	Layer1Max float64 `koanf:"layer1_max"`
	Layer2Min float64 `koanf:"layer2_min"`
	Layer2Max float64 `koanf:"layer2_max"`

	// Tolerance tiers selected by event hit count.
	EtaSmall  float64 `koanf:"eta_small"`
	PhiSmall  float64 `koanf:"phi_small"`
	EtaLarge  float64 `koanf:"eta_large"`
	PhiLarge  float64 `koanf:"phi_large"`
	EtaXLarge float64 `koanf:"eta_xlarge"`
	PhiXLarge float64 `koanf:"phi_xlarge"`

	// LargeCut is the hit count above which the large tier applies.
	LargeCut int `koanf:"ls_cut"`

	// ExtraLargeCut enables the xlarge tier above this hit count; 0 disables it.
	ExtraLargeCut int `koanf:"xl_cut"`

	// Workers sets bin-level parallelism, MatchWorkers matcher-level parallelism.
	// MatchWorkers 0 uses one matcher goroutine per CPU.
	Workers      int `koanf:"workers"`
	MatchWorkers int `koanf:"match_workers"`

	// EdgePolicy is "strict" or "clamp".
	EdgePolicy string `koanf:"edge_policy"`

	// QueueSize bounds the events waiting for the scanner.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the ids remembered for reuse warnings.
	DedupeSize int `koanf:"dedupe_size"`

	// SkipEvents drops the first N events after reading them.
	SkipEvents int `koanf:"skip_events"`

	// SkipMalformed logs and skips malformed rows instead of aborting.
	SkipMalformed bool `koanf:"skip_malformed"`

	// PlotDir enables per-event score plots; PlotLimit caps them (0 = no cap).
	PlotDir   string `koanf:"plot_dir"`
	PlotLimit int    `koanf:"plot_limit"`

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config populated with defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	bands := geometry.DefaultBands()
	grid := zscan.DefaultGrid()
	policy := tolerance.Default()
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		ZMin:          grid.ZMin,
		ZMax:          grid.ZMax,
		ScanStep:      grid.Step,
		Layer0Min:     bands[0].Min,
		Layer0Max:     bands[0].Max,
		Layer1Min:     bands[1].Min,
		Layer1Max:     bands[1].Max,
		Layer2Min:     bands[2].Min,
		Layer2Max:     bands[2].Max,
		EtaSmall:      policy.Small.Eta,
		PhiSmall:      policy.Small.Phi,
		EtaLarge:      policy.Large.Eta,
		PhiLarge:      policy.Large.Phi,
		EtaXLarge:     policy.ExtraLarge.Eta,
		PhiXLarge:     policy.ExtraLarge.Phi,
		LargeCut:      policy.LargeCut,
		ExtraLargeCut: policy.ExtraLargeCut,
		Workers:       runtime.NumCPU(),
		MatchWorkers:  1,
		EdgePolicy:    zscan.EdgeStrict.String(),
		QueueSize:     64,
		DedupeSize:    1 << 16,
	}
}

// Grid returns the hypothesis grid.
func (c *Config) Grid() zscan.Grid {
	return zscan.Grid{ZMin: c.ZMin, ZMax: c.ZMax, Step: c.ScanStep}
}

// Bands returns the layer bands.
func (c *Config) Bands() geometry.Bands {
	return geometry.Bands{
		{Min: c.Layer0Min, Max: c.Layer0Max},
		{Min: c.Layer1Min, Max: c.Layer1Max},
		{Min: c.Layer2Min, Max: c.Layer2Max},
	}
}

// Policy returns the tolerance policy.
func (c *Config) Policy() tolerance.Policy {
	return tolerance.Policy{
		LargeCut:      c.LargeCut,
		ExtraLargeCut: c.ExtraLargeCut,
		Small:         model.Tolerance{Eta: c.EtaSmall, Phi: c.PhiSmall},
		Large:         model.Tolerance{Eta: c.EtaLarge, Phi: c.PhiLarge},
		ExtraLarge:    model.Tolerance{Eta: c.EtaXLarge, Phi: c.PhiXLarge},
	}
}

// Edge parses the edge policy.
func (c *Config) Edge() (zscan.EdgePolicy, error) {
	return zscan.ParseEdgePolicy(c.EdgePolicy)
}

// Validate checks every setting and reports the first problem.
func (c *Config) Validate() error {
	if err := c.Grid().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Bands().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Edge(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}

	for name, v := range map[string]int{
		"workers":     c.Workers,
		"queue_size":  c.QueueSize,
		"dedupe_size": c.DedupeSize,
	} {
		if v < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v)
		}
	}
	for name, v := range map[string]int{
		"match_workers": c.MatchWorkers,
		"skip_events":   c.SkipEvents,
		"plot_limit":    c.PlotLimit,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidConfig, name, v)
		}
	}
	return nil
}
