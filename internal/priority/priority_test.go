package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

func task(id string, importance, urgency float64) *Task {
	return &Task{ID: id, Importance: importance, Urgency: urgency, Status: wbs.StatusPending}
}

func ids(tasks []*Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestQuadrantOf(t *testing.T) {
	tests := []struct {
		name       string
		importance float64
		urgency    float64
		want       Quadrant
	}{
		{name: "both high", importance: 0.9, urgency: 0.9, want: UrgentImportant},
		{name: "both at threshold", importance: 0.5, urgency: 0.5, want: UrgentImportant},
		{name: "urgent boundary, importance just below", importance: 0.4, urgency: 0.5, want: UrgentNotImportant},
		{name: "important only", importance: 0.5, urgency: 0.49, want: NotUrgentImportant},
		{name: "neither", importance: 0, urgency: 0, want: NotUrgentNotImportant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuadrantOf(tt.importance, tt.urgency))
		})
	}
}

func TestQuadrantLabels(t *testing.T) {
	assert.Equal(t, "urgent_not_important", UrgentNotImportant.Label(EisenhowerLabels))
	assert.Equal(t, "do_now", UrgentImportant.Label(ActionLabels))
	assert.Equal(t, "delegate", UrgentNotImportant.Label(ActionLabels))
	assert.Equal(t, "schedule", NotUrgentImportant.Label(ActionLabels))
	assert.Equal(t, "eliminate", NotUrgentNotImportant.Label(ActionLabels))
	assert.Equal(t, "not_urgent_important", NotUrgentImportant.String())
	assert.Equal(t, "unknown", Quadrant(7).Label(ActionLabels))

	set, err := ParseLabelSet("Action")
	require.NoError(t, err)
	assert.Equal(t, ActionLabels, set)
	_, err = ParseLabelSet("moscow")
	assert.ErrorIs(t, err, ErrUnknownLabelSet)
}

func TestClassify_TotalAndStable(t *testing.T) {
	tasks := []*Task{
		task("a", 0.9, 0.9),
		task("b", 0.1, 0.8),
		task("c", 0.7, 0.1),
		task("d", 0.6, 0.6),
		task("e", 0.0, 0.0),
		task("f", 0.2, 0.2),
	}

	m := Classify(tasks)

	assert.Equal(t, len(tasks), m.Len())
	assert.Equal(t, []string{"a", "d"}, ids(m.Tasks(UrgentImportant)))
	assert.Equal(t, []string{"b"}, ids(m.Tasks(UrgentNotImportant)))
	assert.Equal(t, []string{"c"}, ids(m.Tasks(NotUrgentImportant)))
	assert.Equal(t, []string{"e", "f"}, ids(m.Tasks(NotUrgentNotImportant)))

	seen := map[string]int{}
	for _, q := range Quadrants {
		for _, tk := range m.Tasks(q) {
			seen[tk.ID]++
		}
	}
	for _, tk := range tasks {
		assert.Equal(t, 1, seen[tk.ID], tk.ID)
	}
}

func TestClassify_Empty(t *testing.T) {
	m := Classify(nil)
	assert.Zero(t, m.Len())

	labeled := m.Labeled(ActionLabels)
	require.Len(t, labeled, 4)
	for label, tasks := range labeled {
		assert.NotNil(t, tasks, label)
		assert.Empty(t, tasks, label)
	}
	assert.Equal(t, map[string]int{"do_now": 0, "delegate": 0, "schedule": 0, "eliminate": 0}, m.Counts(ActionLabels))
}

func TestTopN(t *testing.T) {
	tasks := []*Task{
		task("a", 0.2, 0.9),
		task("b", 0.8, 0.1),
		task("c", 0.8, 0.5),
		task("d", 0.5, 0.5),
	}

	assert.Equal(t, []string{"b", "c"}, ids(TopN(tasks, 2, ByImportance)), "ties keep input order")
	assert.Equal(t, []string{"a", "c", "d"}, ids(TopN(tasks, 3, ByUrgency)))
	assert.Equal(t, []string{"c", "b", "d", "a"}, ids(TopN(tasks, 10, ByCombined)))
	assert.Empty(t, TopN(tasks, 0, ByImportance))
	assert.Empty(t, TopN(nil, 5, ByImportance))

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(tasks), "input not reordered")
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("URGENCY")
	require.NoError(t, err)
	assert.Equal(t, ByUrgency, k)
	assert.Equal(t, "urgency", k.String())

	_, err = ParseKey("deadline")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestCombinedScore(t *testing.T) {
	assert.InDelta(t, 0.6*0.5+0.4*1.0, CombinedScore(0.5, 1.0), 1e-9)
	assert.InDelta(t, 0.52, task("x", 0.6, 0.4).Score(), 1e-9)
}

func TestCompleteTopN(t *testing.T) {
	roots, err := wbs.ParseOutline([]string{"1 Root", "1.1 A", "1.2 B", "1.3 C"})
	require.NoError(t, err)
	for id, v := range map[string]float64{"1.1": 0.9, "1.2": 0.3, "1.3": 0.6} {
		wbs.Find(roots, id).Importance = wbs.Float(v)
	}
	scoring.Aggregate(roots)

	tasks := Leaves(FromTree(roots, scoring.ScaleUnit))
	require.Len(t, tasks, 3)

	done := CompleteTopN(tasks, 2)
	assert.Equal(t, []string{"1.1", "1.3"}, ids(done))

	for _, tk := range done {
		assert.Equal(t, wbs.StatusCompleted, tk.Status)
		assert.Equal(t, 1.0, tk.Progress)
	}
	assert.Equal(t, wbs.StatusCompleted, wbs.Find(roots, "1.1").Status)
	assert.Equal(t, 1.0, wbs.Find(roots, "1.3").Progress)
	assert.Equal(t, wbs.StatusPending, wbs.Find(roots, "1.2").Status)
}

func TestCompleteTopN_FewerThanN(t *testing.T) {
	tasks := []*Task{task("a", 0.1, 0), task("b", 0.2, 0)}
	done := CompleteTopN(tasks, 5)
	assert.Len(t, done, 2)
	for _, tk := range tasks {
		assert.Equal(t, wbs.StatusCompleted, tk.Status)
		assert.Nil(t, tk.Node())
	}
}

func TestCompleteTopN_AlreadyCompletedCounts(t *testing.T) {
	done := task("a", 0.9, 0)
	done.Status = wbs.StatusCompleted
	done.Progress = 0.4
	tasks := []*Task{done, task("b", 0.5, 0), task("c", 0.1, 0)}

	completed := CompleteTopN(tasks, 2)
	assert.Equal(t, []string{"a", "b"}, ids(completed))
	assert.Equal(t, 1.0, done.Progress)
	assert.Equal(t, wbs.StatusPending, tasks[2].Status)
}

func TestFromTree_NormalizesPercent(t *testing.T) {
	roots, err := wbs.ParseOutline([]string{"1 Root", "1.1 Child"})
	require.NoError(t, err)
	child := wbs.Find(roots, "1.1")
	child.Importance = wbs.Float(80)
	child.Urgency = wbs.Float(40)
	scoring.Aggregate(roots)

	tasks := FromTree(roots, scoring.ScaleAuto)
	require.Len(t, tasks, 2)
	assert.Equal(t, "1", tasks[0].ID)
	assert.InDelta(t, 0.8, tasks[0].Importance, 1e-9)
	assert.InDelta(t, 0.4, tasks[0].Urgency, 1e-9)
	assert.Same(t, roots[0], tasks[0].Node())

	m := Classify(tasks)
	assert.Len(t, m.Tasks(NotUrgentImportant), 2)
}

func TestFromTree_UrgentNotImportantScenario(t *testing.T) {
	n := &wbs.TaskNode{ID: "1", Urgency: wbs.Float(0.5), Importance: wbs.Float(0.4)}
	tasks := FromTree([]*wbs.TaskNode{n}, scoring.ScaleUnit)
	assert.Equal(t, UrgentNotImportant, QuadrantOf(tasks[0].Importance, tasks[0].Urgency))
}
