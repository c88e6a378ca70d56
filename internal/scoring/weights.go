package scoring

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/BurntSushi/toml"
)

// Common weight errors.
var (
	ErrEmptyFeatureKey = errors.New("feature key cannot be empty")
	ErrNegativeWeight  = errors.New("feature weight cannot be negative")
	ErrInvalidWeights  = errors.New("invalid weights file")
)

// Weights holds per-feature urgency and importance weights. The zero value
// has no weights; use DefaultWeights. Weights is immutable once built.
type Weights struct {
	urgency    map[string]float64
	importance map[string]float64
}

// DefaultWeights returns the built-in feature weight tables.
func DefaultWeights() Weights {
	return Weights{
		urgency: map[string]float64{
			"deadline_proximity":             9.5,
			"next_activity_dependency":       8.0,
			"high_delay_risk":                7.5,
			"immediate_decision":             8.5,
			"stakeholder_pressure":           7.0,
			"limited_resource_time":          6.5,
			"competitive_advantage":          6.0,
			"critical_issue_fix":             9.0,
			"external_schedule_coordination": 5.5,
			"high_compensatory_cost":         6.5,
		},
		importance: map[string]float64{
			"dependency":           8.0,
			"critical_path":        9.0,
			"schedule_impact":      7.5,
			"cost_impact":          7.0,
			"key_objectives":       8.5,
			"risk_complexity":      6.5,
			"resource_rarity":      6.0,
			"stakeholder_priority": 7.0,
			"milestone_role":       7.5,
			"quality_impact":       8.0,
			"bottleneck_potential": 7.0,
			"reuse_frequency":      5.5,
		},
	}
}

// NewWeights builds Weights from copies of the given tables.
func NewWeights(urgency, importance map[string]float64) (Weights, error) {
	for _, table := range []map[string]float64{urgency, importance} {
		for k, v := range table {
			if k == "" {
				return Weights{}, ErrEmptyFeatureKey
			}
			if v < 0 {
				return Weights{}, fmt.Errorf("%w: %s=%v", ErrNegativeWeight, k, v)
			}
		}
	}
	return Weights{
		urgency:    maps.Clone(urgency),
		importance: maps.Clone(importance),
	}, nil
}

// IsZero reports whether w has no tables at all.
func (w Weights) IsZero() bool {
	return w.urgency == nil && w.importance == nil
}

// Urgency returns the urgency weight of key, zero when unknown.
func (w Weights) Urgency(key string) float64 {
	return w.urgency[key]
}

// Importance returns the importance weight of key, zero when unknown.
func (w Weights) Importance(key string) float64 {
	return w.importance[key]
}

// Keys returns every known feature key, sorted.
func (w Weights) Keys() []string {
	set := make(map[string]struct{}, len(w.urgency)+len(w.importance))
	for k := range w.urgency {
		set[k] = struct{}{}
	}
	for k := range w.importance {
		set[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Combined scales each feature value by the sum of its urgency and
// importance weights. Unknown features get zero.
func (w Weights) Combined(features map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(features))
	for k, v := range features {
		if k == "" {
			return nil, ErrEmptyFeatureKey
		}
		out[k] = (w.Urgency(k) + w.Importance(k)) * v
	}
	return out, nil
}

// weightsFile is the TOML layout:
//
//	[urgency]
//	deadline_proximity = 9.5
//
//	[importance]
//	critical_path = 9.0
type weightsFile struct {
	Urgency    map[string]float64 `toml:"urgency"`
	Importance map[string]float64 `toml:"importance"`
}

// LoadWeightsFile reads a TOML weights file and overlays it on the
// defaults.
func LoadWeightsFile(path string) (Weights, error) {
	var file weightsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return Weights{}, fmt.Errorf("%w: %s: %v", ErrInvalidWeights, path, err)
	}

	base := DefaultWeights()
	urgency := maps.Clone(base.urgency)
	importance := maps.Clone(base.importance)
	maps.Copy(urgency, file.Urgency)
	maps.Copy(importance, file.Importance)

	w, err := NewWeights(urgency, importance)
	if err != nil {
		return Weights{}, fmt.Errorf("%w: %s: %w", ErrInvalidWeights, path, err)
	}
	return w, nil
}
