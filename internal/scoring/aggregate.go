package scoring

import "github.com/fyrsmithlabs/wbs/internal/wbs"

// Pair holds a task's importance and urgency.
type Pair struct {
	Importance float64 `json:"importance"`
	Urgency    float64 `json:"urgency"`
}

// Scores maps task ID to effective scores.
type Scores map[string]Pair

// Aggregate propagates scores bottom-up over the forest.
//
// Each node's effective importance (and urgency) is the maximum of its own
// value, with unset treated as zero, and its children's effective values.
// Effective fields are written onto every node in place and also returned
// keyed by ID. When IDs repeat, the map holds the last node written in
// post-order; the in-place values are always per node.
//
// The pass depends only on own scores, so running it again yields the same
// result.
func Aggregate(roots []*wbs.TaskNode) Scores {
	return AggregateWith(roots, nil)
}

// AggregateWith is Aggregate with unset own scores filled from derived.
// Derived values feed the effective fields only; own fields are untouched.
func AggregateWith(roots []*wbs.TaskNode, derived Derived) Scores {
	scores := make(Scores, wbs.Count(roots))
	for _, r := range roots {
		aggregate(r, derived, scores)
	}
	return scores
}

func aggregate(n *wbs.TaskNode, derived Derived, scores Scores) Pair {
	p := derived.Own(n)
	for _, c := range n.Children {
		cp := aggregate(c, derived, scores)
		p.Importance = max(p.Importance, cp.Importance)
		p.Urgency = max(p.Urgency, cp.Urgency)
	}
	n.EffectiveImportance = wbs.Float(p.Importance)
	n.EffectiveUrgency = wbs.Float(p.Urgency)
	scores[n.ID] = p
	return p
}

// Effective returns the node's effective scores, falling back to own
// scores when no aggregation pass has run.
func Effective(n *wbs.TaskNode) Pair {
	p := Pair{Importance: n.OwnImportance(), Urgency: n.OwnUrgency()}
	if n.EffectiveImportance != nil {
		p.Importance = *n.EffectiveImportance
	}
	if n.EffectiveUrgency != nil {
		p.Urgency = *n.EffectiveUrgency
	}
	return p
}
