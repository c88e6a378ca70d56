// Package main implements the wbs CLI for scoring work breakdown structures.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/config"
	"github.com/fyrsmithlabs/wbs/internal/input"
	"github.com/fyrsmithlabs/wbs/internal/logging"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/secrets"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	logLevel   string
	scaleFlag  string
)

// app holds everything commands share. It is built once per invocation in
// the root command's PersistentPreRunE.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	scoring   *scoring.Service
	redactor  *secrets.Redactor
	labels    priority.LabelSet
	parseOpts []wbs.ParseOption
	out       io.Writer
}

var current *app

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wbs",
		Short: "Score and prioritize work breakdown structures",
		Long: `wbs parses numbered outlines and JSON WBS fragments, propagates
importance and urgency bottom-up, and classifies tasks into priority
quadrants.

Examples:
  # Score an outline
  wbs score plan.txt

  # Merge fragments and write detailed_wbs.json
  wbs merge ./fragments

  # Show the ten most urgent tasks
  wbs top plan.json --key urgency`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current != nil {
				_ = current.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/wbs/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&scaleFlag, "scale", "", "score scale: auto, unit or percent (auto reads a tree with no score above 1 as unit)")

	root.AddCommand(
		newParseCmd(),
		newMergeCmd(),
		newScoreCmd(),
		newQuadrantsCmd(),
		newTopCmd(),
		newCompleteCmd(),
		newReportCmd(),
		newLintCmd(),
		newWatchCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration and builds the shared services. Flags override
// the configuration file and environment.
func setup(out io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if scaleFlag != "" {
		cfg.Scoring.Scale = scaleFlag
	}

	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	scale, err := scoring.ParseScale(cfg.Scoring.Scale)
	if err != nil {
		return nil, err
	}
	labels, err := priority.ParseLabelSet(cfg.Report.Labels)
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

	redactor, err := secrets.New(secrets.Options{
		Enabled:       cfg.Secrets.Enabled,
		AllowlistFile: cfg.Secrets.AllowlistFile,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		scoring:  scoring.NewService(scoring.NewCalculator(weights), scale, logger.Underlying()),
		redactor: redactor,
		labels:   labels,
		out:      out,
	}
	if cfg.Scoring.StrictOrder {
		a.parseOpts = append(a.parseOpts, wbs.WithStrictOrder())
	}
	return a, nil
}

// source picks the first argument, falling back to the configured outline
// file and then the fragments directory.
func (a *app) source(args []string) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case a.cfg.Input.OutlineFile != "":
		return a.cfg.Input.OutlineFile, nil
	case a.cfg.Input.FragmentsDir != "":
		return a.cfg.Input.FragmentsDir, nil
	}
	return "", errors.New("no input given and neither input.outline_file nor input.fragments_dir is configured")
}

// load reads a forest from an outline, a JSON file or a fragment directory.
func (a *app) load(path string) ([]*wbs.TaskNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", input.ErrNotFound, path)
		}
		return nil, err
	}
	if !info.IsDir() {
		return input.ReadTree(path, a.parseOpts...)
	}

	frags, err := input.ReadFragments(path)
	if err != nil {
		return nil, err
	}
	merged, err := wbs.MergeWithReport(input.Nodes(frags))
	if err != nil {
		return nil, err
	}
	if len(merged.Mismatched) > 0 {
		a.logger.Warn(context.Background(), "fragment roots differ from the first fragment",
			zap.Ints("fragments", merged.Mismatched))
	}
	return []*wbs.TaskNode{merged.Root}, nil
}

// scored loads path and runs a full scoring pass.
func (a *app) scored(ctx context.Context, path string) ([]*wbs.TaskNode, *scoring.Result, error) {
	roots, err := a.load(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.scoring.Run(ctx, roots)
	if err != nil {
		return nil, nil, err
	}
	return roots, res, nil
}

// tasks loads, scores and flattens path.
func (a *app) tasks(ctx context.Context, path string) ([]*wbs.TaskNode, []*priority.Task, error) {
	roots, res, err := a.scored(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return roots, priority.FromTree(roots, res.Scale), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wbs by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
