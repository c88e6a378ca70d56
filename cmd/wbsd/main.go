// Wbsd serves the wbs project API over HTTP.
//
// Configuration is loaded from ~/.config/wbs/config.yaml and WBS_
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	wbsd
//
//	# Configure via environment
//	WBS_SERVER_HTTP_PORT=8080 WBS_SERVER_API_TOKEN=s3cret wbsd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/config"
	wbshttp "github.com/fyrsmithlabs/wbs/internal/http"
	"github.com/fyrsmithlabs/wbs/internal/logging"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/project"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/secrets"
	"github.com/fyrsmithlabs/wbs/internal/telemetry"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/wbs/config.yaml)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  wbsd           Start the wbs daemon\n")
			fmt.Fprintf(os.Stderr, "  wbsd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("wbsd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires configuration, telemetry, logging and the project manager into
// the HTTP server and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zl := logger.Underlying()

	svc, err := newScoring(cfg, tel, zl)
	if err != nil {
		return err
	}
	labels, err := priority.ParseLabelSet(cfg.Report.Labels)
	if err != nil {
		return err
	}
	redactor, err := secrets.New(secrets.Options{
		Enabled:       cfg.Secrets.Enabled,
		AllowlistFile: cfg.Secrets.AllowlistFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize redactor: %w", err)
	}

	managerOpts := []project.Option{project.WithScoring(svc), project.WithLogger(zl)}
	if cfg.Scoring.StrictOrder {
		managerOpts = append(managerOpts, project.WithParseOptions(wbs.WithStrictOrder()))
	}

	srv, err := wbshttp.NewServer(project.NewManager(managerOpts...), zl, &wbshttp.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		APIToken:  cfg.Server.APIToken.Value(),
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
		TopN:      cfg.Report.TopN,
		Labels:    labels,
	},
		wbshttp.WithRedactor(redactor),
		wbshttp.WithHealth(func() any { return tel.Health() }),
	)
	if err != nil {
		return err
	}

	logger.Info(ctx, "starting wbsd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("telemetry", tel.IsEnabled()),
		zap.Bool("auth", cfg.Server.APIToken.IsSet()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info(context.Background(), "server shutdown complete")
	return nil
}

// initLogger sends logs to stderr and, when telemetry is enabled, to the
// OpenTelemetry log pipeline.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logCfg.Fields["service"] = "wbsd"
	if tel.IsEnabled() {
		logCfg.Output.OTEL = true
		return logging.NewLogger(logCfg, tel.LoggerProvider())
	}
	return logging.NewLogger(logCfg, nil)
}

func newScoring(cfg *config.Config, tel *telemetry.Telemetry, logger *zap.Logger) (*scoring.Service, error) {
	scale, err := scoring.ParseScale(cfg.Scoring.Scale)
	if err != nil {
		return nil, err
	}
	weights := scoring.DefaultWeights()
	if cfg.Scoring.WeightsFile != "" {
		weights, err = scoring.LoadWeightsFile(cfg.Scoring.WeightsFile)
		if err != nil {
			return nil, err
		}
	}
	return scoring.NewService(scoring.NewCalculator(weights), scale, logger,
		scoring.WithTracer(tel.Tracer("github.com/fyrsmithlabs/wbs/internal/scoring"))), nil
}
