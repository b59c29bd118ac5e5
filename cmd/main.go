// Command zfinder estimates the primary vertex z of every event in a hit file.
//
// Rows "event_id,x,y,z" are read from -in (or stdin); one line
// "event_id,estimate,hit_count" per scanned event is appended to -out
// (or written to stdout). Settings come from defaults, the YAML file named by
// ZFINDER_CONFIG and ZFINDER_* environment variables, in that order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/zfinder/internal/adapters/http/api"
	"github.com/okian/zfinder/internal/adapters/plot"
	app "github.com/okian/zfinder/internal/app"
	"github.com/okian/zfinder/internal/config"
	"github.com/okian/zfinder/internal/domain/zscan"
	"github.com/okian/zfinder/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// outputPermission applies to result and failure files created by zfinder.
const outputPermission = 0o644

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one scan and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := logger.Init(logger.WithWriter(stderr)); err != nil {
		// Use plain writes for initialization errors since logger isn't available yet
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitFailed
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = io.WriteString(stderr, "failed to load config: "+err.Error()+"\n")
		return exitUsage
	}

	if err := applyFlags(cfg, args, stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		_, _ = io.WriteString(stderr, err.Error()+"\n")
		return exitUsage
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = io.WriteString(stderr, "failed to initialize logging: "+err.Error()+"\n")
		return exitFailed
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := scan(ctx, cfg, stdin, stdout, log); err != nil {
		log.Error(ctx, "zfinder failed", logger.Error(err))
		return exitFailed
	}
	return exitOK
}

// applyFlags lets -in, -out and -skip override the loaded configuration.
func applyFlags(cfg *config.Config, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("zfinder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", cfg.Input, "hit file to read (default stdin)")
	out := fs.String("out", cfg.Output, "result file to append to (default stdout)")
	skip := fs.Int("skip", cfg.SkipEvents, "number of leading events to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg.Input, cfg.Output, cfg.SkipEvents = *in, *out, *skip
	if cfg.SkipEvents < 0 {
		return fmt.Errorf("%w: -skip must not be negative", config.ErrInvalidConfig)
	}
	return nil
}

// scan opens the configured files, builds the pipeline and runs it.
func scan(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer, log logger.Logger) error {
	edge, err := cfg.Edge()
	if err != nil {
		return err
	}
	scanner, err := zscan.New(
		zscan.WithGrid(cfg.Grid()),
		zscan.WithBands(cfg.Bands()),
		zscan.WithWorkers(cfg.Workers),
		zscan.WithMatchWorkers(cfg.MatchWorkers),
		zscan.WithEdgePolicy(edge),
	)
	if err != nil {
		return fmt.Errorf("build scanner: %w", err)
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithScanner(scanner),
		app.WithPolicy(cfg.Policy()),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSkipEvents(cfg.SkipEvents),
		app.WithSkipMalformed(cfg.SkipMalformed),
	}

	if cfg.PlotDir != "" {
		plotter, err := plot.NewProfile(cfg.PlotDir, plot.WithLimit(cfg.PlotLimit))
		if err != nil {
			return err
		}
		opts = append(opts, app.WithPlotter(plotter))
	}

	in := stdin
	if cfg.Input != "" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer closeFile(ctx, log, f)
		in = f
	}

	out := stdout
	if cfg.Output != "" {
		f, err := openAppend(cfg.Output)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer closeFile(ctx, log, f)
		out = f
	}

	if cfg.Failures != "" {
		f, err := openAppend(cfg.Failures)
		if err != nil {
			return fmt.Errorf("open failures: %w", err)
		}
		defer closeFile(ctx, log, f)
		opts = append(opts, app.WithFailures(f))
	}

	svc, err := app.New(opts...)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := startDiagnosticsServer(ctx, cfg.MetricsAddr, svc, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(ctx, "diagnostics server shutdown failed", logger.Error(err))
			}
		}()
	}

	log.Info(ctx, "scanning",
		logger.String("input", displayName(cfg.Input, "stdin")),
		logger.String("output", displayName(cfg.Output, "stdout")),
		logger.Int("bins", scanner.Bins()),
		logger.Int("workers", cfg.Workers),
		logger.Int("match_workers", cfg.MatchWorkers),
		logger.String("edge_policy", edge.String()),
	)

	_, err = svc.Run(ctx, in, out)
	return err
}

// startDiagnosticsServer serves /healthz, /stats and /metrics for the run.
func startDiagnosticsServer(ctx context.Context, addr string, progress api.ProgressSource, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(progress).Register(ctx, mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting diagnostics server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "diagnostics server failed", logger.Error(err))
		}
	}()
	return srv
}

func openAppend(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, outputPermission)
}

func closeFile(ctx context.Context, log logger.Logger, f *os.File) {
	if err := f.Close(); err != nil {
		log.Error(ctx, "failed to close file", logger.String("file", f.Name()), logger.Error(err))
	}
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
