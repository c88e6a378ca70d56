package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

var errNoTasks = errors.New("no outline lines parsed into tasks")

// scoreInput is an own score for one task.
type scoreInput struct {
	Importance *float64 `json:"importance,omitempty" jsonschema:"own importance, 0-1 or 0-100"`
	Urgency    *float64 `json:"urgency,omitempty" jsonschema:"own urgency, 0-1 or 0-100"`
}

// forestInput is shared by every tool.
type forestInput struct {
	Lines  []string              `json:"lines" jsonschema:"outline lines such as '1.2 Build API'"`
	Scores map[string]scoreInput `json:"scores,omitempty" jsonschema:"own scores keyed by task id"`
	Scale  string                `json:"scale,omitempty" jsonschema:"auto, unit or percent"`
}

type scoreOutput struct {
	Scores     scoring.Scores `json:"scores"`
	Scale      string         `json:"scale"`
	Tasks      int            `json:"tasks"`
	Duplicates []string       `json:"duplicates,omitempty"`
}

type classifyInput struct {
	Lines  []string              `json:"lines" jsonschema:"outline lines such as '1.2 Build API'"`
	Scores map[string]scoreInput `json:"scores,omitempty" jsonschema:"own scores keyed by task id"`
	Scale  string                `json:"scale,omitempty" jsonschema:"auto, unit or percent"`
	Labels string                `json:"labels,omitempty" jsonschema:"eisenhower or action"`
}

type classifyOutput struct {
	Labels    string                      `json:"labels"`
	Quadrants map[string][]*priority.Task `json:"quadrants"`
	Counts    map[string]int              `json:"counts"`
}

type topInput struct {
	Lines  []string              `json:"lines" jsonschema:"outline lines such as '1.2 Build API'"`
	Scores map[string]scoreInput `json:"scores,omitempty" jsonschema:"own scores keyed by task id"`
	Scale  string                `json:"scale,omitempty" jsonschema:"auto, unit or percent"`
	N      int                   `json:"n,omitempty" jsonschema:"number of tasks, default 10"`
	Key    string                `json:"key,omitempty" jsonschema:"importance, urgency or combined"`
}

type topOutput struct {
	Tasks []*priority.Task `json:"tasks"`
	Count int              `json:"count"`
}

// pass is one scored forest.
type pass struct {
	roots  []*wbs.TaskNode
	result *scoring.Result
	scale  scoring.Scale
}

// tasks flattens the scored forest to unit-scale tasks.
func (p *pass) tasks() []*priority.Task {
	return priority.FromTree(p.roots, p.scale)
}

// run parses the outline, applies own scores and aggregates.
func (s *Server) run(ctx context.Context, in forestInput) (*pass, error) {
	scale, err := scoring.ParseScale(in.Scale)
	if err != nil {
		return nil, err
	}
	roots, err := wbs.ParseOutline(in.Lines, s.parseOpts...)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, errNoTasks
	}

	wbs.Walk(roots, func(n, _ *wbs.TaskNode) bool {
		if sc, ok := in.Scores[n.ID]; ok {
			n.Importance = sc.Importance
			n.Urgency = sc.Urgency
		}
		return true
	})

	res, err := s.scoring.Run(ctx, roots)
	if err != nil {
		return nil, err
	}
	if scale == scoring.ScaleAuto {
		scale = res.Scale
	}
	return &pass{roots: roots, result: res, scale: scale}, nil
}

// instrument wraps a tool body with metrics and error logging.
func (s *Server) instrument(ctx context.Context, tool string, fn func() error) error {
	start := time.Now()
	s.metrics.IncrementActive(ctx, tool)
	err := fn()
	s.metrics.DecrementActive(ctx, tool)
	s.metrics.RecordInvocation(ctx, tool, time.Since(start), err)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	}
	return err
}

func (s *Server) score(ctx context.Context, in forestInput) (scoreOutput, error) {
	var out scoreOutput
	err := s.instrument(ctx, "wbs_score", func() error {
		p, err := s.run(ctx, in)
		if err != nil {
			return err
		}
		out = scoreOutput{
			Scores:     p.result.Scores,
			Scale:      p.scale.String(),
			Tasks:      len(p.result.Scores),
			Duplicates: p.result.Duplicates,
		}
		return nil
	})
	return out, err
}

func (s *Server) classify(ctx context.Context, in classifyInput) (classifyOutput, error) {
	var out classifyOutput
	err := s.instrument(ctx, "wbs_classify", func() error {
		set := s.labels
		if in.Labels != "" {
			parsed, err := priority.ParseLabelSet(in.Labels)
			if err != nil {
				return err
			}
			set = parsed
		}
		p, err := s.run(ctx, forestInput{Lines: in.Lines, Scores: in.Scores, Scale: in.Scale})
		if err != nil {
			return err
		}
		m := priority.Classify(p.tasks())
		name := "eisenhower"
		if set == priority.ActionLabels {
			name = "action"
		}
		out = classifyOutput{Labels: name, Quadrants: m.Labeled(set), Counts: m.Counts(set)}
		return nil
	})
	return out, err
}

func (s *Server) top(ctx context.Context, in topInput) (topOutput, error) {
	var out topOutput
	err := s.instrument(ctx, "wbs_top", func() error {
		key, err := priority.ParseKey(in.Key)
		if err != nil {
			return err
		}
		n := in.N
		if n <= 0 {
			n = 10
		}
		p, err := s.run(ctx, forestInput{Lines: in.Lines, Scores: in.Scores, Scale: in.Scale})
		if err != nil {
			return err
		}
		tasks := priority.TopN(p.tasks(), n, key)
		out = topOutput{Tasks: tasks, Count: len(tasks)}
		return nil
	})
	return out, err
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "wbs_score",
		Description: "Score an outline: propagate importance and urgency bottom-up and return effective scores per task ID",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args forestInput) (*mcp.CallToolResult, scoreOutput, error) {
		out, err := s.score(ctx, args)
		if err != nil {
			return nil, scoreOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Scored %d tasks (%s scale)", out.Tasks, out.Scale)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "wbs_classify",
		Description: "Classify scored tasks into the four urgency/importance quadrants",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args classifyInput) (*mcp.CallToolResult, classifyOutput, error) {
		out, err := s.classify(ctx, args)
		if err != nil {
			return nil, classifyOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Classified tasks: %v", out.Counts)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "wbs_top",
		Description: "Return the N highest-ranked tasks by importance, urgency or combined score",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args topInput) (*mcp.CallToolResult, topOutput, error) {
		out, err := s.top(ctx, args)
		if err != nil {
			return nil, topOutput{}, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d tasks", out.Count)},
			},
		}, out, nil
	})
}
