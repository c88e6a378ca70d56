package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/input"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/report"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// emit writes v to path when set, otherwise prints it.
func emit(w io.Writer, path string, v interface{}) error {
	if path == "" {
		return printJSON(w, v)
	}
	if err := input.WriteJSON(path, v); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

func newParseCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "parse <outline>",
		Short: "Parse a numbered outline into a JSON task forest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := input.ReadOutline(args[0], current.parseOpts...)
			if err != nil {
				return err
			}
			current.logger.Debug(cmd.Context(), "outline parsed", zap.Int("tasks", wbs.Count(roots)))
			return emit(cmd.OutOrStdout(), output, roots)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to this file instead of stdout")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "merge [dir]",
		Short: "Merge WBS fragment files into a single-root tree",
		Long: `Merge every *.json fragment in dir, in file name order, into one tree
rooted at the first fragment's project descriptor.

When no fragments are found a notice is printed and nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := current.cfg.Input.FragmentsDir
			if len(args) > 0 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no fragment directory given and input.fragments_dir is not configured")
			}
			if output == "" {
				output = current.cfg.Input.OutputFile
			}

			frags, err := input.ReadFragments(dir)
			if err != nil {
				return err
			}
			merged, err := wbs.MergeWithReport(input.Nodes(frags))
			if errors.Is(err, wbs.ErrNoFragments) {
				fmt.Fprintf(cmd.OutOrStdout(), "No WBS fragments found in %s; nothing written.\n", dir)
				return nil
			}
			if err != nil {
				return err
			}
			if len(merged.Mismatched) > 0 {
				current.logger.Warn(cmd.Context(), "fragment roots differ from the first fragment",
					zap.Ints("fragments", merged.Mismatched))
			}
			if dups := wbs.DuplicateIDs([]*wbs.TaskNode{merged.Root}); len(dups) > 0 {
				current.logger.Warn(cmd.Context(), "duplicate task ids in merged tree", zap.Strings("ids", dups))
			}

			if err := input.WriteJSON(output, merged.Root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d fragments into %s\n", merged.Fragments, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default input.output_file)")
	return cmd
}

type scoreOutput struct {
	Scores        interface{} `json:"scores"`
	Scale         string      `json:"scale"`
	FeatureScored int         `json:"feature_scored"`
	Duplicates    []string    `json:"duplicates,omitempty"`
}

func newScoreCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "score [path]",
		Short: "Propagate scores and print effective scores per task",
		Long: `Score an outline file, a JSON tree or a fragment directory.

Leaves with features and no explicit scores are scored from their features
first. Every node's effective importance and urgency is then the maximum of
its own value and its children's.

With --output the scored tree is written as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := current.source(args)
			if err != nil {
				return err
			}
			roots, res, err := current.scored(cmd.Context(), path)
			if err != nil {
				return err
			}
			if output != "" {
				return emit(cmd.OutOrStdout(), output, roots)
			}
			return printJSON(cmd.OutOrStdout(), scoreOutput{
				Scores:        res.Scores,
				Scale:         res.Scale.String(),
				FeatureScored: res.FeatureScored,
				Duplicates:    res.Duplicates,
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the scored tree to this file")
	return cmd
}

func labelFlag(cmd *cobra.Command, raw string) (priority.LabelSet, error) {
	if !cmd.Flags().Changed("labels") {
		return current.labels, nil
	}
	return priority.ParseLabelSet(raw)
}

func newQuadrantsCmd() *cobra.Command {
	var labels string
	cmd := &cobra.Command{
		Use:   "quadrants [path]",
		Short: "Classify tasks into urgency/importance quadrants",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := labelFlag(cmd, labels)
			if err != nil {
				return err
			}
			path, err := current.source(args)
			if err != nil {
				return err
			}
			_, tasks, err := current.tasks(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), priority.Classify(tasks).Labeled(set))
		},
	}
	cmd.Flags().StringVar(&labels, "labels", "eisenhower", "label set: eisenhower or action")
	return cmd
}

func newTopCmd() *cobra.Command {
	var (
		n      int
		key    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "top [path]",
		Short: "List the highest-ranked tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := priority.ParseKey(key)
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

			top := priority.TopN(tasks, n, k)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), top)
			}
			for _, t := range top {
				fmt.Fprintln(cmd.OutOrStdout(), report.TaskLine(t, current.redactor))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", report.DefaultTopN, "number of tasks")
	cmd.Flags().StringVar(&key, "key", "importance", "ranking key: importance, urgency or combined")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCompleteCmd() *cobra.Command {
	var (
		n      int
		output string
	)
	cmd := &cobra.Command{
		Use:   "complete [path]",
		Short: "Mark the most important tasks completed and write the tree",
		Long: `Mark the n most important tasks completed with full progress. Tasks
that are already completed still count toward n. The updated tree is
written to --output (default input.output_file).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 0 {
				return fmt.Errorf("n must not be negative: %d", n)
			}
			if output == "" {
				output = current.cfg.Input.OutputFile
			}
			path, err := current.source(args)
			if err != nil {
				return err
			}
			roots, tasks, err := current.tasks(cmd.Context(), path)
			if err != nil {
				return err
			}

			done := priority.CompleteTopN(tasks, n)
			for _, t := range done {
				fmt.Fprintln(cmd.OutOrStdout(), report.TaskLine(t, current.redactor))
			}
			current.logger.Info(cmd.Context(), "tasks completed", zap.Int("count", len(done)))
			return emit(cmd.OutOrStdout(), output, roots)
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", report.DefaultTopN, "number of tasks to complete")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default input.output_file)")
	return cmd
}
