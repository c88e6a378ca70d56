package priority

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownKey is returned by ParseKey.
var ErrUnknownKey = errors.New("unknown ranking key")

// Key selects the score used for ranking.
type Key int

const (
	ByImportance Key = iota
	ByUrgency
	ByCombined
)

// ParseKey parses "importance", "urgency" or "combined".
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "importance":
		return ByImportance, nil
	case "urgency":
		return ByUrgency, nil
	case "combined", "score":
		return ByCombined, nil
	}
	return ByImportance, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

func (k Key) String() string {
	switch k {
	case ByUrgency:
		return "urgency"
	case ByCombined:
		return "combined"
	default:
		return "importance"
	}
}

// Value returns the ranking value of t.
func (k Key) Value(t *Task) float64 {
	switch k {
	case ByUrgency:
		return t.Urgency
	case ByCombined:
		return t.Score()
	default:
		return t.Importance
	}
}

// TopN returns up to n tasks sorted by key, highest first. Ties keep input
// order. The input slice is not reordered.
func TopN(tasks []*Task, n int, key Key) []*Task {
	if n <= 0 {
		return []*Task{}
	}
	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key.Value(sorted[i]) > key.Value(sorted[j])
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// CompleteTopN marks the n most important tasks completed with full
// progress and returns them. Tasks already completed still count toward n.
// With fewer than n tasks, all are completed.
func CompleteTopN(tasks []*Task, n int) []*Task {
	top := TopN(tasks, n, ByImportance)
	for _, t := range top {
		t.Complete()
	}
	return top
}
