package project

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/wbs/internal/logging"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

var sampleOutline = []string{"1 Root", "1.1 Design", "1.1.1 Draft spec", "1.2 Build"}

// newScoredProject creates a project with the sample outline and leaf scores.
func newScoredProject(t *testing.T, mgr Manager) *Project {
	t.Helper()
	ctx := context.Background()
	p, err := mgr.Create(ctx, "launch")
	require.NoError(t, err)

	frag := &wbs.TaskNode{ID: "1", Title: "Root", Children: []*wbs.TaskNode{
		{ID: "1.1", Title: "Design", Children: []*wbs.TaskNode{
			{ID: "1.1.1", Title: "Draft spec", Importance: wbs.Float(0.8), Urgency: wbs.Float(0.6)},
		}},
		{ID: "1.2", Title: "Build", Importance: wbs.Float(0.3), Urgency: wbs.Float(0.7)},
	}}
	_, err = mgr.ImportFragments(ctx, p.ID, []*wbs.TaskNode{frag})
	require.NoError(t, err)
	return p
}

func TestManager_CRUD(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()

	a, err := mgr.Create(ctx, "alpha")
	require.NoError(t, err)
	b, err := mgr.Create(ctx, "beta")
	require.NoError(t, err)

	_, err = mgr.Create(ctx, "alpha")
	assert.ErrorIs(t, err, ErrProjectExists)
	_, err = mgr.Create(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyProjectName)

	got, err := mgr.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)

	byName, err := mgr.GetByName(ctx, " beta ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byName.ID)

	list, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Nil(t, list[0].Tasks)

	renamed, err := mgr.Rename(ctx, a.ID, "gamma")
	require.NoError(t, err)
	assert.Equal(t, "gamma", renamed.Name)
	_, err = mgr.GetByName(ctx, "alpha")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	_, err = mgr.Rename(ctx, a.ID, "beta")
	assert.ErrorIs(t, err, ErrProjectExists)
	_, err = mgr.Rename(ctx, a.ID, "gamma")
	assert.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, a.ID))
	_, err = mgr.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.ErrorIs(t, mgr.Delete(ctx, a.ID), ErrProjectNotFound)

	_, err = mgr.Create(ctx, "gamma")
	assert.NoError(t, err)
}

func TestManager_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()

	_, err := mgr.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyProjectID)
	_, err = mgr.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidProjectID)
	_, err = mgr.Score(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestManager_ImportOutline(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	p, err := mgr.Create(ctx, "outline")
	require.NoError(t, err)

	got, err := mgr.ImportOutline(ctx, p.ID, sampleOutline)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TaskCount)
	assert.False(t, got.Scored)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, "Draft spec", wbs.Find(got.Tasks, "1.1.1").Title)

	// Snapshots are copies.
	got.Tasks[0].Title = "changed"
	again, err := mgr.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Root", again.Tasks[0].Title)
}

func TestManager_ImportOutlineStrict(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(WithParseOptions(wbs.WithStrictOrder()))
	p, err := mgr.Create(ctx, "strict")
	require.NoError(t, err)

	_, err = mgr.ImportOutline(ctx, p.ID, []string{"1 Root", "1.1.1 Skipped level", "2.1 Orphan"})
	assert.ErrorIs(t, err, wbs.ErrOutOfOrder)
}

func TestManager_ImportFragments(t *testing.T) {
	ctx := context.Background()
	tl := logging.NewTestLogger()
	mgr := NewManager(WithLogger(tl.Underlying()))
	p, err := mgr.Create(ctx, "frags")
	require.NoError(t, err)

	report, err := mgr.ImportFragments(ctx, p.ID, []*wbs.TaskNode{
		{ID: "1", Title: "Root", Children: []*wbs.TaskNode{{ID: "1.1", Title: "A"}}},
		{ID: "9", Title: "Other", Children: []*wbs.TaskNode{{ID: "1.2", Title: "B"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", report.Root.ID)
	assert.Len(t, report.Root.Children, 2)
	assert.Equal(t, []int{1}, report.Mismatched)
	tl.AssertLogged(t, zapcore.WarnLevel, "fragment roots differ")

	_, err = mgr.ImportFragments(ctx, p.ID, nil)
	assert.ErrorIs(t, err, wbs.ErrNoFragments)
}

func TestManager_Score(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(WithScoring(scoring.NewService(nil, scoring.ScaleUnit, nil)))
	p := newScoredProject(t, mgr)

	res, err := mgr.Score(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, scoring.Pair{Importance: 0.8, Urgency: 0.7}, res.Scores["1"])
	assert.Equal(t, scoring.Pair{Importance: 0.8, Urgency: 0.6}, res.Scores["1.1"])
	assert.Equal(t, scoring.ScaleUnit, res.Scale)

	// The returned result is a copy.
	res.Scores["1"] = scoring.Pair{}
	again, err := mgr.Score(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.8, again.Scores["1"].Importance)

	got, err := mgr.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Scored)
	assert.Equal(t, 0.8, *got.Tasks[0].EffectiveImportance)
}

func TestManager_FeatureScoresFollowTreeScale(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	p, err := mgr.Create(ctx, "mixed")
	require.NoError(t, err)

	frag := &wbs.TaskNode{ID: "1", Title: "Root", Children: []*wbs.TaskNode{
		{ID: "1.1", Title: "Explicit", Importance: wbs.Float(0.9), Urgency: wbs.Float(0.9)},
		{ID: "1.2", Title: "Featured", Features: &wbs.Features{RiskOfDelay: 1}},
	}}
	_, err = mgr.ImportFragments(ctx, p.ID, []*wbs.TaskNode{frag})
	require.NoError(t, err)

	tasks, err := mgr.Tasks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "1.1", tasks[1].ID)
	assert.Equal(t, 0.9, tasks[1].Importance)
	assert.Equal(t, 0.9, tasks[1].Urgency)
	assert.Equal(t, priority.UrgentImportant, priority.QuadrantOf(tasks[1].Importance, tasks[1].Urgency))
	assert.InDelta(t, 0.03, tasks[2].Urgency, 1e-9)

	m, err := mgr.Classify(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, m.Tasks(priority.UrgentImportant), 2)
	assert.Len(t, m.Tasks(priority.NotUrgentNotImportant), 1)
}

func TestManager_ScoreTracksDeadlines(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	calc := scoring.NewCalculator(scoring.DefaultWeights())
	calc.Now = func() time.Time { return now }
	mgr := NewManager(WithScoring(scoring.NewService(calc, scoring.ScaleAuto, nil)))

	p, err := mgr.Create(ctx, "release")
	require.NoError(t, err)
	frag := &wbs.TaskNode{ID: "1", Title: "Root", Children: []*wbs.TaskNode{
		{ID: "1.1", Title: "Ship", Features: &wbs.Features{Deadline: now.Add(48 * time.Hour).Format(time.RFC3339)}},
	}}
	_, err = mgr.ImportFragments(ctx, p.ID, []*wbs.TaskNode{frag})
	require.NoError(t, err)

	before, err := mgr.Score(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.1667, before.Scores["1.1"].Urgency, 1e-9)

	calc.Now = func() time.Time { return now.Add(48 * time.Hour) }
	after, err := mgr.Score(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, after.Scores["1.1"].Urgency, 1e-9)

	got, err := mgr.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Tasks[0].Children[0].Urgency, "derived scores are not stored as own scores")
}

func TestManager_ClassifyAndTop(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	p := newScoredProject(t, mgr)

	m, err := mgr.Classify(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())
	assert.Len(t, m.Tasks(priority.UrgentImportant), 3)
	assert.Len(t, m.Tasks(priority.UrgentNotImportant), 1)

	top, err := mgr.Top(ctx, p.ID, 2, priority.ByUrgency)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "1", top[0].ID)
	assert.Equal(t, "1.2", top[1].ID)
	assert.Nil(t, top[0].Node())
}

func TestManager_CompleteTop(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	p := newScoredProject(t, mgr)

	done, err := mgr.CompleteTop(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, wbs.StatusCompleted, done[0].Status)

	tasks, err := mgr.Tasks(ctx, p.ID)
	require.NoError(t, err)
	completed := 0
	for _, task := range tasks {
		if task.Status == wbs.StatusCompleted {
			completed++
			assert.Equal(t, 1.0, task.Progress)
		}
	}
	assert.Equal(t, 2, completed)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager()
	p := newScoredProject(t, mgr)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = mgr.Tasks(ctx, p.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = mgr.ImportOutline(ctx, p.ID, sampleOutline)
		}()
	}
	wg.Wait()

	got, err := mgr.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TaskCount)
}
