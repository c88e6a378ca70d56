package project

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// MaxNameLength bounds project names.
const MaxNameLength = 128

// Common errors.
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrProjectExists      = errors.New("project already exists")
	ErrInvalidProjectID   = errors.New("invalid project ID")
	ErrInvalidProjectName = errors.New("invalid project name")
	ErrEmptyProjectID     = errors.New("project ID cannot be empty")
	ErrEmptyProjectName   = errors.New("project name cannot be empty")
)

// Project is a named WBS forest.
type Project struct {
	// ID is the unique project identifier (UUID).
	ID string `json:"id"`

	// Name is the human-readable project name.
	Name string `json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TaskCount is the number of nodes in the forest.
	TaskCount int `json:"task_count"`

	// Scored is true when effective scores reflect the current tree.
	Scored bool `json:"scored"`

	// Tasks is the forest. Snapshots returned by the Manager carry a
	// deep copy.
	Tasks []*wbs.TaskNode `json:"tasks,omitempty"`
}

// NewProject creates an empty project with a generated UUID.
func NewProject(name string) (*Project, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Tasks:     []*wbs.TaskNode{},
	}, nil
}

// Validate checks the identifying fields.
func (p *Project) Validate() error {
	if p.ID == "" {
		return ErrEmptyProjectID
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		return ErrInvalidProjectID
	}
	_, err := normalizeName(p.Name)
	return err
}

// snapshot returns a copy of p with a deep-copied forest.
func (p *Project) snapshot(withTasks bool) *Project {
	cp := *p
	cp.Tasks = nil
	if withTasks {
		cp.Tasks = wbs.CloneForest(p.Tasks)
	}
	return &cp
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyProjectName
	}
	if len(name) > MaxNameLength || strings.ContainsAny(name, "\n\r\t") {
		return "", ErrInvalidProjectName
	}
	return name, nil
}

func validateID(id string) error {
	if id == "" {
		return ErrEmptyProjectID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidProjectID
	}
	return nil
}
