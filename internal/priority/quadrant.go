package priority

import (
	"errors"
	"fmt"
	"strings"
)

// Threshold is the inclusive lower bound for "urgent" and "important".
const Threshold = 0.5

// ErrUnknownLabelSet is returned by ParseLabelSet.
var ErrUnknownLabelSet = errors.New("unknown quadrant label set")

// Quadrant is one of four priority buckets.
type Quadrant int

// Quadrants in display order.
const (
	UrgentImportant Quadrant = iota
	UrgentNotImportant
	NotUrgentImportant
	NotUrgentNotImportant
)

// Quadrants lists every quadrant in display order.
var Quadrants = []Quadrant{UrgentImportant, UrgentNotImportant, NotUrgentImportant, NotUrgentNotImportant}

// LabelSet selects a naming scheme for quadrants. Both sets describe the
// same classification.
type LabelSet int

const (
	// EisenhowerLabels names quadrants by their two attributes.
	EisenhowerLabels LabelSet = iota
	// ActionLabels names quadrants by the recommended action.
	ActionLabels
)

var labels = map[LabelSet][4]string{
	EisenhowerLabels: {"urgent_important", "urgent_not_important", "not_urgent_important", "not_urgent_not_important"},
	ActionLabels:     {"do_now", "delegate", "schedule", "eliminate"},
}

// ParseLabelSet parses "eisenhower" or "action".
func ParseLabelSet(s string) (LabelSet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eisenhower":
		return EisenhowerLabels, nil
	case "action", "actions":
		return ActionLabels, nil
	}
	return EisenhowerLabels, fmt.Errorf("%w: %q", ErrUnknownLabelSet, s)
}

// QuadrantOf classifies unit-scale scores. Both thresholds are inclusive.
func QuadrantOf(importance, urgency float64) Quadrant {
	urgent := urgency >= Threshold
	important := importance >= Threshold
	switch {
	case urgent && important:
		return UrgentImportant
	case urgent:
		return UrgentNotImportant
	case important:
		return NotUrgentImportant
	default:
		return NotUrgentNotImportant
	}
}

// Label names q in the given set.
func (q Quadrant) Label(set LabelSet) string {
	names, ok := labels[set]
	if !ok || q < 0 || int(q) >= len(names) {
		return "unknown"
	}
	return names[q]
}

func (q Quadrant) String() string {
	return q.Label(EisenhowerLabels)
}

// Matrix holds tasks partitioned by quadrant.
type Matrix struct {
	buckets [4][]*Task
}

// Classify places every task in exactly one quadrant, keeping input order
// within each quadrant.
func Classify(tasks []*Task) Matrix {
	var m Matrix
	for i := range m.buckets {
		m.buckets[i] = []*Task{}
	}
	for _, t := range tasks {
		q := QuadrantOf(t.Importance, t.Urgency)
		m.buckets[q] = append(m.buckets[q], t)
	}
	return m
}

// Tasks returns the tasks in q.
func (m Matrix) Tasks(q Quadrant) []*Task {
	if q < 0 || int(q) >= len(m.buckets) {
		return nil
	}
	return m.buckets[q]
}

// Len returns the number of classified tasks.
func (m Matrix) Len() int {
	total := 0
	for _, b := range m.buckets {
		total += len(b)
	}
	return total
}

// Counts returns the size of each quadrant keyed by label.
func (m Matrix) Counts(set LabelSet) map[string]int {
	out := make(map[string]int, len(Quadrants))
	for _, q := range Quadrants {
		out[q.Label(set)] = len(m.buckets[q])
	}
	return out
}

// Labeled returns every quadrant keyed by label. All four keys are present.
func (m Matrix) Labeled(set LabelSet) map[string][]*Task {
	out := make(map[string][]*Task, len(Quadrants))
	for _, q := range Quadrants {
		out[q.Label(set)] = m.buckets[q]
	}
	return out
}
