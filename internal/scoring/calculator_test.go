package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

func fixedCalculator(now time.Time) *Calculator {
	c := NewCalculator(DefaultWeights())
	c.Now = func() time.Time { return now }
	return c
}

func TestCalculator_Importance(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	tests := []struct {
		name     string
		features *wbs.Features
		want     float64
		wantErr  bool
	}{
		{name: "nil features", features: nil, want: 0},
		{
			name: "all factors",
			features: &wbs.Features{
				Dependencies: wbs.IDList{"1", "2", "3", "4", "5"},
				CriticalPath: true,
				CostImpact:   50000,
				Priority:     wbs.PriorityLabel("high"),
			},
			want: 75,
		},
		{
			name:     "saturated dependencies and cost",
			features: &wbs.Features{Dependencies: make(wbs.IDList, 25), CostImpact: 1e9},
			want:     50,
		},
		{name: "medium label", features: &wbs.Features{Priority: wbs.PriorityLabel("Medium")}, want: 10},
		{name: "unknown label", features: &wbs.Features{Priority: wbs.PriorityLabel("urgent")}, want: 0},
		{name: "numeric priority", features: &wbs.Features{Priority: wbs.PriorityValue(7)}, want: 14},
		{name: "priority out of range", features: &wbs.Features{Priority: wbs.PriorityValue(11)}, wantErr: true},
		{name: "negative cost", features: &wbs.Features{CostImpact: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Importance(tt.features)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFeature)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculator_Urgency(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calc := fixedCalculator(now)

	tests := []struct {
		name     string
		features *wbs.Features
		want     float64
	}{
		{name: "no deadline", features: &wbs.Features{RiskOfDelay: 5}, want: 15},
		{name: "deadline passed", features: &wbs.Features{Deadline: "2024-12-30"}, want: 50},
		{name: "half window", features: &wbs.Features{Deadline: "2025-01-02T12:00:00"}, want: 25},
		{name: "beyond window", features: &wbs.Features{Deadline: "2025-02-01"}, want: 0},
		{name: "unparseable deadline", features: &wbs.Features{Deadline: "next week"}, want: 0},
		{
			name:     "all factors",
			features: &wbs.Features{Deadline: "2025-01-02T12:00:00Z", RiskOfDelay: 5, StakeholderPressure: 20},
			want:     60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Urgency(tt.features)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, err := calc.Urgency(&wbs.Features{RiskOfDelay: -2})
	assert.ErrorIs(t, err, ErrInvalidFeature)
}

func TestCalculator_Derive(t *testing.T) {
	roots := outline(t, "1 Root", "1.1 Featured", "1.2 Explicit", "1.3 Bare")
	roots[0].Features = &wbs.Features{CriticalPath: true}
	featured := wbs.Find(roots, "1.1")
	featured.Features = &wbs.Features{CriticalPath: true, RiskOfDelay: 10}
	explicit := wbs.Find(roots, "1.2")
	explicit.Importance = wbs.Float(5)
	explicit.Features = &wbs.Features{CriticalPath: true}

	calc := fixedCalculator(time.Now())
	derived, err := calc.Derive(roots, ScaleAuto)
	require.NoError(t, err)
	assert.Len(t, derived, 2)

	assert.NotContains(t, derived, roots[0], "parents are never feature scored")
	assert.Equal(t, Pair{Importance: 30, Urgency: 30}, derived[featured])
	assert.Equal(t, Pair{Importance: 5, Urgency: 0}, derived.Own(explicit))
	assert.Equal(t, Pair{}, derived.Own(wbs.Find(roots, "1.3")))

	assert.Nil(t, featured.Importance, "own fields stay unset")
	assert.Nil(t, featured.Urgency)
	assert.Nil(t, explicit.Urgency)
}

func TestCalculator_DeriveMatchesScale(t *testing.T) {
	roots := outline(t, "1 Root", "1.1 Featured")
	leaf := wbs.Find(roots, "1.1")
	leaf.Features = &wbs.Features{CriticalPath: true, RiskOfDelay: 10}

	calc := fixedCalculator(time.Now())
	unit, err := calc.Derive(roots, ScaleUnit)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, unit[leaf].Importance, 1e-9)
	assert.InDelta(t, 0.3, unit[leaf].Urgency, 1e-9)

	percent, err := calc.Derive(roots, ScalePercent)
	require.NoError(t, err)
	assert.Equal(t, Pair{Importance: 30, Urgency: 30}, percent[leaf])
}

func TestCalculator_DeriveError(t *testing.T) {
	roots := outline(t, "1 Root")
	roots[0].Features = &wbs.Features{Priority: wbs.PriorityValue(-1)}

	_, err := NewCalculator(DefaultWeights()).Derive(roots, ScaleAuto)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFeature)
	assert.Contains(t, err.Error(), "task 1")
}

func TestCalculator_Weights(t *testing.T) {
	critical := &wbs.Features{CriticalPath: true}
	risky := &wbs.Features{RiskOfDelay: 5}

	tests := []struct {
		name           string
		weights        Weights
		wantImportance float64
		wantUrgency    float64
	}{
		{name: "zero value uses defaults", weights: Weights{}, wantImportance: 30, wantUrgency: 15},
		{name: "defaults", weights: DefaultWeights(), wantImportance: 30, wantUrgency: 15},
		{
			name: "doubled critical path",
			weights: mustWeights(t, map[string]float64{"deadline_proximity": 9.5, "high_delay_risk": 7.5, "stakeholder_pressure": 7.0},
				map[string]float64{"dependency": 8.0, "critical_path": 18.0, "cost_impact": 7.0, "stakeholder_priority": 7.0}),
			wantImportance: 46.15,
			wantUrgency:    15,
		},
		{
			name: "deadline ignored",
			weights: mustWeights(t, map[string]float64{"deadline_proximity": 0, "high_delay_risk": 7.5, "stakeholder_pressure": 7.0},
				map[string]float64{"dependency": 8.0, "critical_path": 9.0, "cost_impact": 7.0, "stakeholder_priority": 7.0}),
			wantImportance: 30,
			wantUrgency:    30,
		},
		{name: "all zero", weights: mustWeights(t, map[string]float64{}, map[string]float64{}), wantImportance: 0, wantUrgency: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := &Calculator{Weights: tt.weights}
			imp, err := calc.Importance(critical)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantImportance, imp, 1e-9)

			urg, err := calc.Urgency(risky)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantUrgency, urg, 1e-9)
		})
	}
}

func TestLoadWeightsFile_ChangesScores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.toml")
	require.NoError(t, os.WriteFile(path, []byte("[importance]\ncritical_path = 18.0\n"), 0600))

	w, err := LoadWeightsFile(path)
	require.NoError(t, err)

	features := &wbs.Features{CriticalPath: true}
	base, err := NewCalculator(DefaultWeights()).Importance(features)
	require.NoError(t, err)
	tuned, err := NewCalculator(w).Importance(features)
	require.NoError(t, err)

	assert.Equal(t, 30.0, base)
	assert.InDelta(t, 46.15, tuned, 1e-9)
}

func mustWeights(t *testing.T, urgency, importance map[string]float64) Weights {
	t.Helper()
	w, err := NewWeights(urgency, importance)
	require.NoError(t, err)
	return w
}

func TestWeights(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 9.5, w.Urgency("deadline_proximity"))
	assert.Equal(t, 9.0, w.Importance("critical_path"))
	assert.Zero(t, w.Urgency("critical_path"))
	assert.Len(t, w.Keys(), 22)

	combined, err := w.Combined(map[string]float64{
		"critical_path":        2,
		"stakeholder_pressure": 1,
		"unknown":              5,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"critical_path":        18,
		"stakeholder_pressure": 7,
		"unknown":              0,
	}, combined)

	_, err = w.Combined(map[string]float64{"": 1})
	assert.ErrorIs(t, err, ErrEmptyFeatureKey)
}

func TestNewWeights_CopiesInput(t *testing.T) {
	urgency := map[string]float64{"x": 1}
	w, err := NewWeights(urgency, nil)
	require.NoError(t, err)

	urgency["x"] = 100
	assert.Equal(t, 1.0, w.Urgency("x"))

	_, err = NewWeights(map[string]float64{"x": -1}, nil)
	assert.ErrorIs(t, err, ErrNegativeWeight)
}

func TestLoadWeightsFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("overlays defaults", func(t *testing.T) {
		path := filepath.Join(dir, "weights.toml")
		require.NoError(t, os.WriteFile(path, []byte("[urgency]\ndeadline_proximity = 3.0\n\n[importance]\nnew_signal = 2.5\n"), 0600))

		w, err := LoadWeightsFile(path)
		require.NoError(t, err)
		assert.Equal(t, 3.0, w.Urgency("deadline_proximity"))
		assert.Equal(t, 2.5, w.Importance("new_signal"))
		assert.Equal(t, 9.0, w.Importance("critical_path"))
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[urgency\n"), 0600))
		_, err := LoadWeightsFile(path)
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("negative weight", func(t *testing.T) {
		path := filepath.Join(dir, "neg.toml")
		require.NoError(t, os.WriteFile(path, []byte("[urgency]\nx = -1.0\n"), 0600))
		_, err := LoadWeightsFile(path)
		assert.ErrorIs(t, err, ErrInvalidWeights)
		assert.ErrorIs(t, err, ErrNegativeWeight)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadWeightsFile(filepath.Join(dir, "missing.toml"))
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})
}

func TestService_Run(t *testing.T) {
	roots := outline(t, "1 Root", "1.1 A", "1.2 B")
	wbs.Find(roots, "1.1").Features = &wbs.Features{CriticalPath: true}
	setScores(t, roots, "1.2", 10, 90)

	svc := NewService(nil, ScaleAuto, nil)
	res, err := svc.Run(context.Background(), roots)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FeatureScored)
	assert.Equal(t, ScalePercent, res.Scale)
	assert.Equal(t, Pair{Importance: 30, Urgency: 90}, res.Scores["1"])
	assert.Empty(t, res.Duplicates)
}

func TestService_RunMixedUnitTree(t *testing.T) {
	roots := outline(t, "1 Root", "1.1 Explicit", "1.2 Featured")
	setScores(t, roots, "1.1", 0.9, 0.9)
	featured := wbs.Find(roots, "1.2")
	featured.Features = &wbs.Features{RiskOfDelay: 1}

	res, err := NewService(nil, ScaleAuto, nil).Run(context.Background(), roots)
	require.NoError(t, err)

	assert.Equal(t, ScaleUnit, res.Scale)
	assert.Equal(t, 1, res.FeatureScored)
	assert.Equal(t, Pair{Importance: 0.9, Urgency: 0.9}, res.Scores["1.1"])
	assert.InDelta(t, 0.03, res.Scores["1.2"].Urgency, 1e-9)
	assert.Equal(t, Pair{Importance: 0.9, Urgency: 0.9}, res.Scores["1"])
	assert.Nil(t, featured.Urgency)
}

func TestService_RunTracksClock(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	calc := fixedCalculator(now)

	roots := outline(t, "1 Root", "1.1 Release")
	leaf := wbs.Find(roots, "1.1")
	leaf.Features = &wbs.Features{Deadline: now.Add(48 * time.Hour).Format(time.RFC3339)}

	svc := NewService(calc, ScaleAuto, nil)
	first, err := svc.Run(context.Background(), roots)
	require.NoError(t, err)
	assert.InDelta(t, 0.1667, first.Scores["1"].Urgency, 1e-9)

	calc.Now = func() time.Time { return now.Add(48 * time.Hour) }
	second, err := svc.Run(context.Background(), roots)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, second.Scores["1"].Urgency, 1e-9)
	assert.InDelta(t, 0.5, *leaf.EffectiveUrgency, 1e-9)
	assert.Nil(t, leaf.Urgency)
}

func TestService_RunReportsDuplicates(t *testing.T) {
	roots := []*wbs.TaskNode{
		{ID: "1", Children: []*wbs.TaskNode{{ID: "1.1"}, {ID: "1.1"}}},
	}
	res, err := NewService(nil, ScaleUnit, nil).Run(context.Background(), roots)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1"}, res.Duplicates)
	assert.Equal(t, ScaleUnit, res.Scale)
}

func TestService_RunFeatureError(t *testing.T) {
	roots := outline(t, "1 Root")
	roots[0].Features = &wbs.Features{CostImpact: -5}

	_, err := NewService(nil, ScaleAuto, nil).Run(context.Background(), roots)
	assert.ErrorIs(t, err, ErrInvalidFeature)
}
