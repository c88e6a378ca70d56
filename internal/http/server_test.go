package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/project"
	"github.com/fyrsmithlabs/wbs/internal/telemetry"
)

const fragmentBody = `[{"id":"1","title":"Launch","level":0,"subtasks":[
	{"id":"1.1","title":"Write docs","importance":0.9,"urgency":0.8},
	{"id":"1.2","title":"Tidy CI","importance":0.2,"urgency":0.7}
]}]`

func newTestServer(t *testing.T, cfg *Config, opts ...Option) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 0}
	}
	s, err := NewServer(project.NewManager(), zap.NewNop(), cfg, opts...)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func createProject(t *testing.T, s *Server, name string) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/projects", `{"name":"`+name+`"}`, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p.ID
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, zap.NewNop(), nil)
	assert.Error(t, err)

	_, err = NewServer(project.NewManager(), nil, nil)
	assert.Error(t, err)

	s, err := NewServer(project.NewManager(), zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, 9191, s.config.Port)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, WithHealth(func() any {
		return telemetry.HealthStatus{Healthy: true}
	}))

	rec := do(t, s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"telemetry"`)
}

func TestProjectCRUD(t *testing.T) {
	s := newTestServer(t, nil)
	id := createProject(t, s, "roadmap")

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{name: "duplicate name", method: http.MethodPost, target: "/api/v1/projects", body: `{"name":"roadmap"}`, want: http.StatusConflict},
		{name: "empty name", method: http.MethodPost, target: "/api/v1/projects", body: `{"name":""}`, want: http.StatusBadRequest},
		{name: "bad body", method: http.MethodPost, target: "/api/v1/projects", body: `{`, want: http.StatusBadRequest},
		{name: "get", method: http.MethodGet, target: "/api/v1/projects/" + id, want: http.StatusOK},
		{name: "get unknown", method: http.MethodGet, target: "/api/v1/projects/00000000-0000-0000-0000-000000000000", want: http.StatusNotFound},
		{name: "get invalid id", method: http.MethodGet, target: "/api/v1/projects/not-a-uuid", want: http.StatusBadRequest},
		{name: "list", method: http.MethodGet, target: "/api/v1/projects", want: http.StatusOK},
		{name: "rename", method: http.MethodPatch, target: "/api/v1/projects/" + id, body: `{"name":"plan"}`, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body, "application/json")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, s, http.MethodDelete, "/api/v1/projects/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/v1/projects/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportOutline(t *testing.T) {
	s := newTestServer(t, nil)
	id := createProject(t, s, "outline")

	rec := do(t, s, http.MethodPut, "/api/v1/projects/"+id+"/outline", "1 Plan\n1.1 Draft\n1.2 Review\n2 Ship\n", "text/plain")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 4, p.TaskCount)
	require.Len(t, p.Tasks, 2)
	assert.Len(t, p.Tasks[0].Children, 2)

	rec = do(t, s, http.MethodPut, "/api/v1/projects/"+id+"/outline", `{"lines":["1 Only"]}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 1, p.TaskCount)
}

func TestImportFragments(t *testing.T) {
	s := newTestServer(t, nil)
	id := createProject(t, s, "frags")

	rec := do(t, s, http.MethodPut, "/api/v1/projects/"+id+"/fragments", fragmentBody, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var merged MergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &merged))
	assert.Equal(t, 1, merged.Fragments)
	assert.Len(t, merged.Root.Children, 2)

	rec = do(t, s, http.MethodPut, "/api/v1/projects/"+id+"/fragments", `[]`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/projects/"+id+"/fragments", `{"id":"1","status":"done"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoringEndpoints(t *testing.T) {
	s := newTestServer(t, &Config{TopN: 1})
	id := createProject(t, s, "scored")
	rec := do(t, s, http.MethodPut, "/api/v1/projects/"+id+"/fragments", fragmentBody, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	base := "/api/v1/projects/" + id

	t.Run("scores", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, base+"/scores", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ScoresResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unit", resp.Scale)
		assert.InDelta(t, 0.9, resp.Scores["1"].Importance, 1e-9)
		assert.InDelta(t, 0.8, resp.Scores["1"].Urgency, 1e-9)
	})

	t.Run("quadrants", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, base+"/quadrants?labels=action", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp QuadrantsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "action", resp.Labels)
		assert.Equal(t, 2, resp.Counts["do_now"])
		assert.Equal(t, 1, resp.Counts["delegate"])

		rec = do(t, s, http.MethodGet, base+"/quadrants?labels=colors", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("top", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, base+"/top?key=urgency&n=2", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp TasksResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "1", resp.Tasks[0].ID)
		assert.Equal(t, "1.1", resp.Tasks[1].ID)

		rec = do(t, s, http.MethodGet, base+"/top", "", "")
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)

		rec = do(t, s, http.MethodGet, base+"/top?n=-1", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = do(t, s, http.MethodGet, base+"/top?key=size", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("report", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, base+"/report", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
		assert.Contains(t, rec.Body.String(), "# Task Priority and Urgency Report")
		assert.Contains(t, rec.Body.String(), "## Top 1 Important Tasks")

		rec = do(t, s, http.MethodGet, base+"/report?kind=progress", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "# Progress Report Dashboard")

		rec = do(t, s, http.MethodGet, base+"/report?kind=gantt", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("complete", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, base+"/complete", `{"n":2}`, "application/json")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp TasksResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 2, resp.Count)
		for _, task := range resp.Tasks {
			assert.Equal(t, "completed", string(task.Status))
			assert.Equal(t, 1.0, task.Progress)
		}

		rec = do(t, s, http.MethodGet, base+"/report?kind=progress", "", "")
		assert.Contains(t, rec.Body.String(), "- Completed: 2")
	})
}

func TestBearerAuth(t *testing.T) {
	s := newTestServer(t, &Config{APIToken: "s3cret"})

	rec := do(t, s, http.MethodPost, "/api/v1/projects", `{"name":"x"}`, "application/json")
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnauthorized}, rec.Code, "missing key")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/projects", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &Config{RateLimit: 1, RateBurst: 1})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, s, http.MethodGet, "/api/v1/projects", "", "").Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "", "").Code)
}

func TestMetricsMiddleware(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	s := newTestServer(t, nil, WithMetrics(NewHTTPMetricsWithMeter(tt.Meter("test"), nil)))

	do(t, s, http.MethodGet, "/api/v1/projects", "", "")
	do(t, s, http.MethodGet, "/api/v1/projects/00000000-0000-0000-0000-000000000000", "", "")

	names, err := tt.MetricNames(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "wbs.http.requests_total")
	assert.Contains(t, names, "wbs.http.request_duration_seconds")
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "unmatched", normalizePath(""))
	assert.Equal(t, "/api/v1/projects/:id", normalizePath("/api/v1/projects/:id"))
}

func TestShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
