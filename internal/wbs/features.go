package wbs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPriority is returned for priorities that are neither a label nor a number.
var ErrInvalidPriority = errors.New("priority must be a number or label")

// Features are the raw leaf inputs used to derive own scores when a task
// carries none.
type Features struct {
	Dependencies        IDList    `json:"dependencies,omitempty"`
	CriticalPath        bool      `json:"critical_path,omitempty"`
	CostImpact          float64   `json:"cost_impact,omitempty"`
	Priority            *Priority `json:"priority,omitempty"`
	Deadline            string    `json:"deadline,omitempty"`
	RiskOfDelay         float64   `json:"risk_of_delay,omitempty"`
	StakeholderPressure float64   `json:"stakeholder_pressure,omitempty"`
}

// IsZero reports whether no feature is set.
func (f Features) IsZero() bool {
	return len(f.Dependencies) == 0 &&
		!f.CriticalPath &&
		f.CostImpact == 0 &&
		f.Priority == nil &&
		f.Deadline == "" &&
		f.RiskOfDelay == 0 &&
		f.StakeholderPressure == 0
}

// Clone returns a copy that shares nothing with f.
func (f *Features) Clone() *Features {
	c := *f
	if f.Dependencies != nil {
		c.Dependencies = append(IDList(nil), f.Dependencies...)
	}
	if f.Priority != nil {
		p := *f.Priority
		p.Value = clonePtr(f.Priority.Value)
		c.Priority = &p
	}
	return &c
}

// IDList is a list of task identifiers that accepts strings or numbers.
type IDList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dependencies must be a list: %w", err)
	}
	ids := make(IDList, 0, len(raw))
	for _, r := range raw {
		id, err := decodeID(r)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

// Priority is a stakeholder priority given either as a label
// ("low", "medium", "high") or as a number in [0, 10].
type Priority struct {
	Label string
	Value *float64
}

// PriorityLabel returns a label priority.
func PriorityLabel(label string) *Priority {
	return &Priority{Label: label}
}

// PriorityValue returns a numeric priority.
func PriorityValue(v float64) *Priority {
	return &Priority{Value: &v}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Priority) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return fmt.Errorf("%w: null", ErrInvalidPriority)
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Priority{Label: s}
		return nil
	case data[0] == 't' || data[0] == 'f':
		return fmt.Errorf("%w: boolean %s", ErrInvalidPriority, data)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPriority, data)
	}
	*p = Priority{Value: &v}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Priority) MarshalJSON() ([]byte, error) {
	if p.Value != nil {
		return json.Marshal(*p.Value)
	}
	return json.Marshal(p.Label)
}
