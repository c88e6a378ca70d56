package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/commitlint"
	"github.com/fyrsmithlabs/wbs/internal/input"
	"github.com/fyrsmithlabs/wbs/internal/mcp"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/report"
	"github.com/fyrsmithlabs/wbs/internal/watch"
)

// errViolations makes lint exit non-zero without repeating the listing.
var errViolations = errors.New("commit messages do not match the required pattern")

// render produces one report kind for tasks.
func render(kind, name string, tasks []*priority.Task, opts report.Options) (string, error) {
	switch kind {
	case "", "priority":
		return report.PriorityMarkdown(tasks, opts), nil
	case "progress":
		return report.ProgressMarkdown(tasks, opts), nil
	case "terminal":
		return report.Terminal(name, tasks, opts), nil
	}
	return "", fmt.Errorf("unknown report kind %q (must be priority, progress or terminal)", kind)
}

func newReportCmd() *cobra.Command {
	var (
		kind   string
		labels string
		n      int
		output string
	)
	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Render a priority, progress or terminal report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := labelFlag(cmd, labels)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				n = current.cfg.Report.TopN
			}
			path, err := current.source(args)
			if err != nil {
				return err
			}
			_, tasks, err := current.tasks(cmd.Context(), path)
			if err != nil {
				return err
			}

			opts := report.Options{TopN: n, Labels: set, Redactor: current.redactor}
			body, err := render(kind, filepath.Base(path), tasks, opts)
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), body)
				return nil
			}
			if err := os.WriteFile(output, []byte(body), 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "priority", "report kind: priority, progress or terminal")
	cmd.Flags().StringVar(&labels, "labels", "eisenhower", "label set: eisenhower or action")
	cmd.Flags().IntVarP(&n, "count", "n", report.DefaultTopN, "tasks per top-N section")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file")
	return cmd
}

func newLintCmd() *cobra.Command {
	var (
		branch     string
		pattern    string
		maxCommits int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "lint [repo]",
		Short: "Check commit messages against the commit pattern",
		Long: `Walk the commits reachable from a branch and check every subject line
against a pattern (default: conventional commit headers). Task references
such as [1.2.3] are collected per task id.

Exits non-zero when any commit does not match.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := "."
			if len(args) > 0 {
				repo = args[0]
			}
			lc := current.cfg.Lint
			if cmd.Flags().Changed("branch") {
				lc.Branch = branch
			}
			if cmd.Flags().Changed("pattern") {
				lc.Pattern = pattern
			}
			if cmd.Flags().Changed("max") {
				lc.MaxCommits = maxCommits
			}

			re, err := commitlint.CompilePattern(lc.Pattern)
			if err != nil {
				return err
			}
			res, err := commitlint.Lint(cmd.Context(), repo, commitlint.Options{
				Branch:     lc.Branch,
				Pattern:    re,
				MaxCommits: lc.MaxCommits,
				Redactor:   current.redactor,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Checked %d commits on %s\n", len(res.Commits), res.Branch)
				for _, c := range res.Violations {
					fmt.Fprintf(out, "  %s %s\n", shortHash(c.Hash), c.Subject)
				}
			}
			if !res.OK() {
				return fmt.Errorf("%w: %d of %d", errViolations, len(res.Violations), len(res.Commits))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "main", "branch to walk; empty uses HEAD")
	cmd.Flags().StringVar(&pattern, "pattern", commitlint.DefaultPattern, "regular expression for the subject line")
	cmd.Flags().IntVar(&maxCommits, "max", 500, "most recent commits to check; 0 checks all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func newWatchCmd() *cobra.Command {
	var (
		kind   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Re-score and rewrite the report whenever inputs change",
		Long: `Watch outline files and fragment directories. After each debounced
change the first path is re-scored and the report is written to --output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				p, err := current.source(nil)
				if err != nil {
					return err
				}
				paths = []string{p}
			}
			if output == "" {
				output = "wbs_report.md"
			}

			rerun := func(ctx context.Context, changed []string) error {
				_, tasks, err := current.tasks(ctx, paths[0])
				if err != nil {
					return err
				}
				opts := report.Options{TopN: current.cfg.Report.TopN, Labels: current.labels, Redactor: current.redactor}
				body, err := render(kind, filepath.Base(paths[0]), tasks, opts)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, []byte(body), 0644); err != nil {
					return err
				}
				current.logger.Info(ctx, "report refreshed",
					zap.Strings("changed", changed), zap.String("output", output))
				return nil
			}

			// Render once so the report exists before the first change.
			if err := rerun(cmd.Context(), paths); err != nil && !errors.Is(err, input.ErrNotFound) {
				return err
			}

			w, err := watch.New(paths, rerun, watch.Options{
				Debounce: current.cfg.Input.WatchDebounce.Duration(),
				Ignore:   []string{output},
				Logger:   current.logger.Underlying(),
			})
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d paths; writing %s\n", len(paths), output)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "priority", "report kind: priority or progress")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default wbs_report.md)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve scoring tools over MCP on stdio",
		Long: `Run an MCP server on stdin/stdout exposing wbs_score, wbs_classify
and wbs_top. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := mcp.NewServer(&mcp.Config{
				Name:        "wbs",
				Version:     version,
				Logger:      current.logger.Underlying(),
				Labels:      current.labels,
				StrictOrder: current.cfg.Scoring.StrictOrder,
			}, current.scoring)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
}
