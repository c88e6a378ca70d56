package http

import (
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Telemetry any    `json:"telemetry,omitempty"`
}

// CreateProjectRequest is the body for POST /api/v1/projects.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// RenameProjectRequest is the body for PATCH /api/v1/projects/:id.
type RenameProjectRequest struct {
	Name string `json:"name"`
}

// OutlineRequest is the JSON form of an outline import. Plain text bodies
// are accepted too.
type OutlineRequest struct {
	Lines []string `json:"lines"`
}

// MergeResponse reports a fragment import.
type MergeResponse struct {
	Root       *wbs.TaskNode `json:"root"`
	Fragments  int           `json:"fragments"`
	Mismatched []int         `json:"mismatched,omitempty"`
}

// ScoresResponse is the response body for GET /api/v1/projects/:id/scores.
type ScoresResponse struct {
	Scores        scoring.Scores `json:"scores"`
	Scale         string         `json:"scale"`
	FeatureScored int            `json:"feature_scored"`
	Duplicates    []string       `json:"duplicates,omitempty"`
}

// QuadrantsResponse maps quadrant labels to their tasks.
type QuadrantsResponse struct {
	Labels    string                      `json:"labels"`
	Quadrants map[string][]*priority.Task `json:"quadrants"`
	Counts    map[string]int              `json:"counts"`
}

// TasksResponse wraps a task list.
type TasksResponse struct {
	Tasks []*priority.Task `json:"tasks"`
	Count int              `json:"count"`
}

// CompleteRequest is the body for POST /api/v1/projects/:id/complete.
type CompleteRequest struct {
	N int `json:"n"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
