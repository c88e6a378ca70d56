package wbs

import (
	"fmt"
	"regexp"
	"strings"
)

// outlinePattern matches "<dotted id><whitespace><title>" on a trimmed line.
var outlinePattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)\s+(.*)$`)

// ParseOption configures ParseOutline.
type ParseOption func(*parseConfig)

type parseConfig struct {
	strict bool
}

// WithStrictOrder makes the parser reject lines whose parent on the
// ancestor stack is not their dot-prefix parent, instead of attaching them
// to it.
func WithStrictOrder() ParseOption {
	return func(c *parseConfig) {
		c.strict = true
	}
}

// ParseOutline builds a forest from flat numbered lines.
//
// Lines that do not look like "<id> <title>" after trimming are skipped.
// Each new node pops every stack entry at the same or a deeper level and
// attaches to the remaining top, or becomes a root when the stack is empty.
// Input is consumed in a single pass; out-of-order lines are only detected
// with WithStrictOrder, which returns ErrOutOfOrder.
func ParseOutline(lines []string, opts ...ParseOption) ([]*TaskNode, error) {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	roots := make([]*TaskNode, 0)
	stack := make([]*TaskNode, 0, 8)

	for i, raw := range lines {
		m := outlinePattern.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		node := &TaskNode{
			ID:     m[1],
			Title:  m[2],
			Level:  LevelOf(m[1]),
			Status: StatusPending,
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			if cfg.strict && node.Level != 1 {
				return nil, fmt.Errorf("%w: line %d: %s has no parent", ErrOutOfOrder, i+1, node.ID)
			}
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			if cfg.strict && !IsChildID(parent.ID, node.ID) {
				return nil, fmt.Errorf("%w: line %d: %s cannot follow %s", ErrOutOfOrder, i+1, node.ID, parent.ID)
			}
			parent.AddChild(node)
		}
		stack = append(stack, node)
	}

	return roots, nil
}

// ParseOutlineText splits text into lines and parses it.
func ParseOutlineText(text string, opts ...ParseOption) ([]*TaskNode, error) {
	return ParseOutline(strings.Split(text, "\n"), opts...)
}
