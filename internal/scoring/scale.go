package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// ErrUnknownScale is returned by ParseScale for unrecognized names.
var ErrUnknownScale = errors.New("unknown score scale")

// Scale is the numeric range own scores are expressed in.
type Scale int

const (
	// ScaleAuto picks ScalePercent when any explicit own score exceeds 1
	// and ScaleUnit otherwise. A 0-100 tree whose scores all happen to be
	// at most 1 is therefore read as unit; set the scale explicitly for
	// such trees.
	ScaleAuto Scale = iota
	// ScaleUnit is the 0.0-1.0 range.
	ScaleUnit
	// ScalePercent is the 0-100 range.
	ScalePercent
)

// ParseScale parses "auto", "unit" or "percent".
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ScaleAuto, nil
	case "unit":
		return ScaleUnit, nil
	case "percent":
		return ScalePercent, nil
	}
	return ScaleAuto, fmt.Errorf("%w: %q", ErrUnknownScale, s)
}

func (s Scale) String() string {
	switch s {
	case ScaleUnit:
		return "unit"
	case ScalePercent:
		return "percent"
	default:
		return "auto"
	}
}

// DetectScale inspects explicit own scores in the forest. Scores derived
// from features are never stored on nodes and so never sway detection.
func DetectScale(roots []*wbs.TaskNode) Scale {
	scale := ScaleUnit
	wbs.Walk(roots, func(n, _ *wbs.TaskNode) bool {
		if n.OwnImportance() > 1 || n.OwnUrgency() > 1 {
			scale = ScalePercent
			return false
		}
		return true
	})
	return scale
}

// Resolve replaces ScaleAuto with the scale detected in roots.
func (s Scale) Resolve(roots []*wbs.TaskNode) Scale {
	if s == ScaleAuto {
		return DetectScale(roots)
	}
	return s
}

// Normalize converts v to the unit range. ScaleAuto is treated as unit;
// call Resolve first.
func (s Scale) Normalize(v float64) float64 {
	if s == ScalePercent {
		return v / 100
	}
	return v
}

// NormalizePair normalizes both members of p.
func (s Scale) NormalizePair(p Pair) Pair {
	return Pair{Importance: s.Normalize(p.Importance), Urgency: s.Normalize(p.Urgency)}
}
