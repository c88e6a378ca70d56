package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/logging"
	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/project"
	"github.com/fyrsmithlabs/wbs/internal/report"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// mapError converts domain errors into HTTP errors.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, project.ErrProjectExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, wbs.ErrNoFragments),
		errors.Is(err, scoring.ErrInvalidFeature):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, project.ErrInvalidProjectID),
		errors.Is(err, project.ErrInvalidProjectName),
		errors.Is(err, project.ErrEmptyProjectID),
		errors.Is(err, project.ErrEmptyProjectName),
		errors.Is(err, wbs.ErrInvalidID),
		errors.Is(err, wbs.ErrInvalidStatus),
		errors.Is(err, wbs.ErrInvalidProgress),
		errors.Is(err, wbs.ErrInvalidPriority),
		errors.Is(err, wbs.ErrOutOfOrder),
		errors.Is(err, priority.ErrUnknownKey),
		errors.Is(err, priority.ErrUnknownLabelSet):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	logging.FromContext(c.Request().Context()).Error(c.Request().Context(), "request failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if s.health != nil {
		resp.Telemetry = s.health()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.projects.List(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.projects.Create(c.Request().Context(), req.Name)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handleGetProject(c echo.Context) error {
	p, err := s.projects.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleRenameProject(c echo.Context) error {
	var req RenameProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.projects.Rename(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	if err := s.projects.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleImportOutline accepts either a JSON {"lines": [...]} body or the
// raw outline as text.
func (s *Server) handleImportOutline(c echo.Context) error {
	var lines []string
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req OutlineRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		lines = req.Lines
	} else {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
		}
		lines = strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	}

	p, err := s.projects.ImportOutline(c.Request().Context(), c.Param("id"), lines)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// handleImportFragments merges a JSON array of fragments, or a single
// fragment object.
func (s *Server) handleImportFragments(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}
	fragments, err := wbs.DecodeForest(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	merged, err := s.projects.ImportFragments(c.Request().Context(), c.Param("id"), fragments)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, MergeResponse{
		Root:       merged.Root,
		Fragments:  merged.Fragments,
		Mismatched: merged.Mismatched,
	})
}

func (s *Server) handleScores(c echo.Context) error {
	res, err := s.projects.Score(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, ScoresResponse{
		Scores:        res.Scores,
		Scale:         res.Scale.String(),
		FeatureScored: res.FeatureScored,
		Duplicates:    res.Duplicates,
	})
}

func (s *Server) labelSet(c echo.Context) (priority.LabelSet, error) {
	raw := c.QueryParam("labels")
	if raw == "" {
		return s.config.Labels, nil
	}
	return priority.ParseLabelSet(raw)
}

func (s *Server) handleQuadrants(c echo.Context) error {
	set, err := s.labelSet(c)
	if err != nil {
		return s.mapError(c, err)
	}
	m, err := s.projects.Classify(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	name := "eisenhower"
	if set == priority.ActionLabels {
		name = "action"
	}
	return c.JSON(http.StatusOK, QuadrantsResponse{
		Labels:    name,
		Quadrants: m.Labeled(set),
		Counts:    m.Counts(set),
	})
}

// topN reads n from the query, falling back to the configured default.
func (s *Server) topN(raw string) (int, error) {
	if raw == "" {
		if s.config.TopN > 0 {
			return s.config.TopN, nil
		}
		return report.DefaultTopN, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "n must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) handleTop(c echo.Context) error {
	n, err := s.topN(c.QueryParam("n"))
	if err != nil {
		return err
	}
	key, err := priority.ParseKey(c.QueryParam("key"))
	if err != nil {
		return s.mapError(c, err)
	}
	tasks, err := s.projects.Top(c.Request().Context(), c.Param("id"), n, key)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: tasks, Count: len(tasks)})
}

func (s *Server) handleComplete(c echo.Context) error {
	var req CompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.N < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "n must be a non-negative integer")
	}
	tasks, err := s.projects.CompleteTop(c.Request().Context(), c.Param("id"), req.N)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: tasks, Count: len(tasks)})
}

// handleReport renders the priority (default) or progress report as
// markdown.
func (s *Server) handleReport(c echo.Context) error {
	set, err := s.labelSet(c)
	if err != nil {
		return s.mapError(c, err)
	}
	n, err := s.topN(c.QueryParam("n"))
	if err != nil {
		return err
	}
	tasks, err := s.projects.Tasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}

	opts := report.Options{TopN: n, Labels: set, Redactor: s.redactor}
	var body string
	switch c.QueryParam("kind") {
	case "", "priority":
		body = report.PriorityMarkdown(tasks, opts)
	case "progress":
		body = report.ProgressMarkdown(tasks, opts)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be priority or progress")
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=UTF-8", []byte(body))
}
