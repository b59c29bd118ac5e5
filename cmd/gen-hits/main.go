// Command gen-hits writes synthetic hit files with known vertices and checks
// zfinder results against them.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/zfinder/internal/synth"
	"github.com/okian/zfinder/pkg/logger"
)

func main() {
	def := synth.DefaultConfig()
	var (
		events  = flag.Int("events", def.Events, "Number of events to generate")
		first   = flag.Int64("first", def.FirstID, "Id of the first event")
		tracks  = flag.Int("tracks", def.Tracks, "Straight tracks per event")
		noise   = flag.Int("noise", def.Noise, "Noise hits per event")
		etaMax  = flag.Float64("eta", def.EtaMax, "Maximum |eta| of generated tracks")
		zSigma  = flag.Float64("zsigma", def.ZSigma, "Spread of the true vertex")
		zLimit  = flag.Float64("zlimit", def.ZLimit, "Largest |z0| generated")
		seed    = flag.Uint64("seed", def.Seed, "Generator seed")
		out     = flag.String("out", def.HitsFile, "Hit file to write")
		truth   = flag.String("truth", def.TruthFile, "Truth file to write or read")
		verify  = flag.String("verify", "", "Results file to compare with -truth")
		tol     = flag.Float64("tol", def.Tolerance, "Largest |estimate - z0| counted as found")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		synth.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := def
	cfg.Events = *events
	cfg.FirstID = *first
	cfg.Tracks = *tracks
	cfg.Noise = *noise
	cfg.EtaMax = *etaMax
	cfg.ZSigma = *zSigma
	cfg.ZLimit = *zLimit
	cfg.Seed = *seed
	cfg.HitsFile = *out
	cfg.TruthFile = *truth
	cfg.ResultsFile = *verify
	cfg.Tolerance = *tol

	if cfg.ResultsFile != "" {
		rep, err := synth.VerifyFiles(ctx, cfg)
		if err != nil {
			os.Stderr.WriteString("verification failed: " + err.Error() + "\n")
			os.Exit(1)
		}
		if rep.Within < rep.Events {
			os.Exit(1)
		}
		return
	}

	if _, err := synth.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("generation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
