package priority

import (
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// Combined score weights.
const (
	ImportanceWeight = 0.6
	UrgencyWeight    = 0.4
)

// Task is a flat, unit-scale view of a tree node. Mutations made through a
// Task are applied to the node it was built from.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Importance float64    `json:"importance"`
	Urgency    float64    `json:"urgency"`
	Status     wbs.Status `json:"status"`
	Progress   float64    `json:"progress"`

	node *wbs.TaskNode
}

// FromTree flattens the forest in pre-order. Scores are the effective
// scores when an aggregation pass has run, own scores otherwise, converted
// to the unit range with scale. ScaleAuto is resolved against roots.
func FromTree(roots []*wbs.TaskNode, scale scoring.Scale) []*Task {
	scale = scale.Resolve(roots)
	nodes := wbs.Flatten(roots)
	tasks := make([]*Task, 0, len(nodes))
	for _, n := range nodes {
		p := scale.NormalizePair(scoring.Effective(n))
		tasks = append(tasks, &Task{
			ID:         n.ID,
			Title:      n.Title,
			Importance: p.Importance,
			Urgency:    p.Urgency,
			Status:     n.Status,
			Progress:   n.Progress,
			node:       n,
		})
	}
	return tasks
}

// Leaves returns only tasks whose node has no children.
func Leaves(tasks []*Task) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.node == nil || t.node.IsLeaf() {
			out = append(out, t)
		}
	}
	return out
}

// Node returns the backing node, or nil for detached tasks.
func (t *Task) Node() *wbs.TaskNode {
	return t.node
}

// Score is the combined importance and urgency score.
func (t *Task) Score() float64 {
	return CombinedScore(t.Importance, t.Urgency)
}

// Complete marks the task and its node completed with full progress.
func (t *Task) Complete() {
	t.Status = wbs.StatusCompleted
	t.Progress = 1.0
	if t.node != nil {
		t.node.Complete()
	}
}

// CombinedScore weighs importance above urgency.
func CombinedScore(importance, urgency float64) float64 {
	return ImportanceWeight*importance + UrgencyWeight*urgency
}
