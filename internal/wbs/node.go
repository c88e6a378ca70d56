package wbs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Common errors.
var (
	ErrInvalidID       = errors.New("invalid task ID")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidProgress = errors.New("progress must be between 0 and 1")
	ErrOutOfOrder      = errors.New("outline line out of order")
	ErrNoFragments     = errors.New("no WBS fragments found")
)

// Status is the lifecycle state of a task.
type Status string

// Task statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

var idPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// TaskNode is a single unit of work in the hierarchy.
type TaskNode struct {
	// ID is the dotted identifier, unique within a tree.
	ID string `json:"id"`

	// Title is free text.
	Title string `json:"title"`

	// Level is the depth of the node. Outline roots are level 1; fragment
	// project roots may use level 0.
	Level int `json:"level"`

	// Importance and Urgency are the node's own scores. Nil means unset.
	Importance *float64 `json:"importance,omitempty"`
	Urgency    *float64 `json:"urgency,omitempty"`

	// EffectiveImportance and EffectiveUrgency are nil until an
	// aggregation pass has run over the tree.
	EffectiveImportance *float64 `json:"effective_importance,omitempty"`
	EffectiveUrgency    *float64 `json:"effective_urgency,omitempty"`

	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`

	// Features are raw inputs for leaf scoring.
	Features *Features `json:"features,omitempty"`

	Children []*TaskNode `json:"subtasks,omitempty"`
}

// NewTaskNode creates a pending node, deriving the level from the ID.
func NewTaskNode(id, title string) (*TaskNode, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return &TaskNode{
		ID:     id,
		Title:  title,
		Level:  LevelOf(id),
		Status: StatusPending,
	}, nil
}

// ValidID reports whether id is a dotted numeric identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// LevelOf returns the hierarchy level encoded in a dotted identifier.
func LevelOf(id string) int {
	return strings.Count(id, ".") + 1
}

// IsChildID reports whether child sits exactly one level below parent.
func IsChildID(parent, child string) bool {
	if !strings.HasPrefix(child, parent+".") {
		return false
	}
	return LevelOf(child) == LevelOf(parent)+1
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// IsLeaf reports whether the node has no children.
func (n *TaskNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// AddChild appends c to the node's children.
func (n *TaskNode) AddChild(c *TaskNode) {
	n.Children = append(n.Children, c)
}

// OwnImportance returns the node's own importance, zero when unset.
func (n *TaskNode) OwnImportance() float64 {
	return deref(n.Importance)
}

// OwnUrgency returns the node's own urgency, zero when unset.
func (n *TaskNode) OwnUrgency() float64 {
	return deref(n.Urgency)
}

// HasScores reports whether either own score is set.
func (n *TaskNode) HasScores() bool {
	return n.Importance != nil || n.Urgency != nil
}

// SetStatus changes the status. Completing a task forces progress to 1.
func (n *TaskNode) SetStatus(s Status) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	n.Status = s
	if s == StatusCompleted {
		n.Progress = 1.0
	}
	return nil
}

// Complete marks the node completed with full progress.
func (n *TaskNode) Complete() {
	n.Status = StatusCompleted
	n.Progress = 1.0
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *TaskNode) Clone() *TaskNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Importance = clonePtr(n.Importance)
	c.Urgency = clonePtr(n.Urgency)
	c.EffectiveImportance = clonePtr(n.EffectiveImportance)
	c.EffectiveUrgency = clonePtr(n.EffectiveUrgency)
	if n.Features != nil {
		c.Features = n.Features.Clone()
	}
	if n.Children != nil {
		c.Children = make([]*TaskNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// nodeJSON is the accepted wire shape. Fragments written by older tooling
// use "name" instead of "title", "importance_score" and "urgency_score"
// instead of "importance" and "urgency", numeric IDs, and feature keys
// inlined on the task object.
type nodeJSON struct {
	ID                  json.RawMessage `json:"id"`
	Title               string          `json:"title"`
	Name                string          `json:"name"`
	Level               *int            `json:"level"`
	Importance          *float64        `json:"importance"`
	Urgency             *float64        `json:"urgency"`
	ImportanceScore     *float64        `json:"importance_score"`
	UrgencyScore        *float64        `json:"urgency_score"`
	EffectiveImportance *float64        `json:"effective_importance"`
	EffectiveUrgency    *float64        `json:"effective_urgency"`
	Status              Status          `json:"status"`
	Progress            float64         `json:"progress"`
	Nested              *Features       `json:"features"`
	Subtasks            []*TaskNode     `json:"subtasks"`
	Features
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *TaskNode) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}

	node := TaskNode{
		ID:                  id,
		Title:               raw.Title,
		Importance:          raw.Importance,
		Urgency:             raw.Urgency,
		EffectiveImportance: raw.EffectiveImportance,
		EffectiveUrgency:    raw.EffectiveUrgency,
		Status:              raw.Status,
		Progress:            raw.Progress,
		Children:            raw.Subtasks,
	}
	if node.Title == "" {
		node.Title = raw.Name
	}
	if node.Importance == nil {
		node.Importance = raw.ImportanceScore
	}
	if node.Urgency == nil {
		node.Urgency = raw.UrgencyScore
	}
	switch {
	case raw.Level != nil:
		node.Level = *raw.Level
	case ValidID(id):
		node.Level = LevelOf(id)
	}
	switch {
	case raw.Nested != nil:
		node.Features = raw.Nested
	case !raw.Features.IsZero():
		f := raw.Features
		node.Features = &f
	}

	if node.Status == "" {
		node.Status = StatusPending
	}
	if !node.Status.Valid() {
		return fmt.Errorf("task %s: %w: %q", id, ErrInvalidStatus, node.Status)
	}
	if node.Progress < 0 || node.Progress > 1 {
		return fmt.Errorf("task %s: %w: %v", id, ErrInvalidProgress, node.Progress)
	}
	if node.Status == StatusCompleted {
		node.Progress = 1.0
	}

	*n = node
	return nil
}

// decodeID accepts string or numeric JSON identifiers.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrInvalidID)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
		if s == "" {
			return "", fmt.Errorf("%w: empty id", ErrInvalidID)
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidID, raw)
	}
	return num.String(), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
