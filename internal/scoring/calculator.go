package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// ErrInvalidFeature is returned when a feature value is out of range.
var ErrInvalidFeature = errors.New("invalid feature value")

// term is one weighted factor of a formula.
type term struct {
	key  string
	base float64
}

var (
	importanceTerms = []term{
		{key: "dependency", base: 0.3},
		{key: "critical_path", base: 0.3},
		{key: "cost_impact", base: 0.2},
		{key: "stakeholder_priority", base: 0.2},
	}
	urgencyTerms = []term{
		{key: "deadline_proximity", base: 0.5},
		{key: "high_delay_risk", base: 0.3},
		{key: "stakeholder_pressure", base: 0.2},
	}

	defaultWeights = DefaultWeights()
)

const (
	dependencySaturation = 10.0
	costSaturation       = 100000.0
	riskSaturation       = 10.0
	pressureSaturation   = 10.0
	deadlineWindow       = 72 * time.Hour
)

// priorityLabels maps named priorities to the 0-10 range.
var priorityLabels = map[string]float64{
	"low":    1,
	"medium": 5,
	"high":   10,
	"بالا":   10,
	"اهم":    10,
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Calculator derives scores for leaves from their raw features. Each
// formula term is weighted by the matching entry in Weights relative to its
// default, so the default tables reproduce the base coefficients.
type Calculator struct {
	// Weights scales the feature terms. The zero value uses the defaults.
	Weights Weights

	// Now is the clock used for deadline proximity.
	Now func() time.Time
}

// NewCalculator returns a calculator using the wall clock.
func NewCalculator(w Weights) *Calculator {
	return &Calculator{Weights: w, Now: time.Now}
}

// Importance scores dependency count, critical path involvement, cost
// impact and stakeholder priority on a 0-100 scale.
func (c *Calculator) Importance(f *wbs.Features) (float64, error) {
	if f == nil {
		return 0, nil
	}
	if f.CostImpact < 0 {
		return 0, fmt.Errorf("%w: cost_impact %v", ErrInvalidFeature, f.CostImpact)
	}

	priority, err := priorityFactor(f.Priority)
	if err != nil {
		return 0, err
	}
	critical := 0.0
	if f.CriticalPath {
		critical = 1
	}

	v := weighted(c.coefficients(importanceTerms, Weights.Importance),
		saturate(float64(len(f.Dependencies)), dependencySaturation),
		critical,
		saturate(f.CostImpact, costSaturation),
		priority,
	)
	return round2(v * 100), nil
}

// Urgency scores deadline proximity, delay risk and stakeholder pressure
// on a 0-100 scale. A missing or unparseable deadline contributes nothing.
func (c *Calculator) Urgency(f *wbs.Features) (float64, error) {
	if f == nil {
		return 0, nil
	}
	if f.RiskOfDelay < 0 {
		return 0, fmt.Errorf("%w: risk_of_delay %v", ErrInvalidFeature, f.RiskOfDelay)
	}
	if f.StakeholderPressure < 0 {
		return 0, fmt.Errorf("%w: stakeholder_pressure %v", ErrInvalidFeature, f.StakeholderPressure)
	}

	v := weighted(c.coefficients(urgencyTerms, Weights.Urgency),
		c.timeFactor(f.Deadline),
		saturate(f.RiskOfDelay, riskSaturation),
		saturate(f.StakeholderPressure, pressureSaturation),
	)
	return round2(v * 100), nil
}

// timeFactor is 1 at or past the deadline and falls to 0 at three days out.
func (c *Calculator) timeFactor(deadline string) float64 {
	if deadline == "" {
		return 0
	}
	now := c.now()
	for _, layout := range deadlineLayouts {
		d, err := time.ParseInLocation(layout, deadline, now.Location())
		if err != nil {
			continue
		}
		remaining := d.Sub(now).Seconds() / deadlineWindow.Seconds()
		return 1 - math.Max(0, math.Min(1, remaining))
	}
	return 0
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// coefficients scales each base coefficient by weight/default and
// renormalizes them to sum to 1. All-zero weights yield zero coefficients.
func (c *Calculator) coefficients(terms []term, lookup func(Weights, string) float64) []float64 {
	w := c.Weights
	if w.IsZero() {
		w = defaultWeights
	}
	out := make([]float64, len(terms))
	sum := 0.0
	for i, t := range terms {
		out[i] = t.base
		if def := lookup(defaultWeights, t.key); def > 0 {
			out[i] = t.base * lookup(w, t.key) / def
		}
		sum += out[i]
	}
	if sum == 0 || math.Abs(sum-1) < 1e-9 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func weighted(coef []float64, factors ...float64) float64 {
	v := 0.0
	for i, f := range factors {
		v += coef[i] * f
	}
	return v
}

// Derived maps leaves to scores computed from their features.
type Derived map[*wbs.TaskNode]Pair

// Own returns n's own scores with unset fields taken from d.
func (d Derived) Own(n *wbs.TaskNode) Pair {
	p := Pair{Importance: n.OwnImportance(), Urgency: n.OwnUrgency()}
	v, ok := d[n]
	if !ok {
		return p
	}
	if n.Importance == nil {
		p.Importance = v.Importance
	}
	if n.Urgency == nil {
		p.Urgency = v.Urgency
	}
	return p
}

// Derive scores every leaf that carries features and lacks at least one
// own score. Values are expressed in scale, resolved against roots when
// ScaleAuto, so they compare directly with explicit scores. Nodes are not
// modified; explicit scores always win.
func (c *Calculator) Derive(roots []*wbs.TaskNode, scale Scale) (Derived, error) {
	scale = scale.Resolve(roots)
	factor := 1.0
	if scale == ScaleUnit {
		factor = 0.01
	}

	derived := make(Derived)
	var firstErr error
	wbs.Walk(roots, func(n, _ *wbs.TaskNode) bool {
		if firstErr != nil {
			return false
		}
		if !n.IsLeaf() || n.Features == nil || (n.Importance != nil && n.Urgency != nil) {
			return true
		}
		imp, err := c.Importance(n.Features)
		if err == nil {
			var urg float64
			urg, err = c.Urgency(n.Features)
			derived[n] = Pair{Importance: imp * factor, Urgency: urg * factor}
		}
		if err != nil {
			firstErr = fmt.Errorf("task %s: %w", n.ID, err)
			return false
		}
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return derived, nil
}

func priorityFactor(p *wbs.Priority) (float64, error) {
	if p == nil {
		return 0, nil
	}
	if p.Value != nil {
		v := *p.Value
		if v < 0 || v > 10 {
			return 0, fmt.Errorf("%w: priority %v outside 0-10", ErrInvalidFeature, v)
		}
		return v / 10, nil
	}
	return priorityLabels[strings.ToLower(p.Label)] / 10, nil
}

func saturate(v, limit float64) float64 {
	return math.Min(1, v/limit)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
