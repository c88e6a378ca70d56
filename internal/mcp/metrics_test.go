package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/telemetry"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) (int64, bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func TestMetrics_RecordInvocation(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	m := NewMetricsWithMeter(tt.Meter(instrumentationName), nil)
	ctx := context.Background()

	m.RecordInvocation(ctx, "wbs_score", 100*time.Millisecond, nil)
	m.RecordInvocation(ctx, "wbs_score", 50*time.Millisecond, wbs.ErrOutOfOrder)

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)

	total, ok := sumOf(t, rm, "wbs.mcp.tool.invocations_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), total)

	total, ok = sumOf(t, rm, "wbs.mcp.tool.errors_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), total)

	names, err := tt.MetricNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "wbs.mcp.tool.duration_seconds")
}

func TestMetrics_ActiveRequests(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	m := NewMetricsWithMeter(tt.Meter(instrumentationName), nil)
	ctx := context.Background()

	m.IncrementActive(ctx, "wbs_top")
	m.IncrementActive(ctx, "wbs_top")
	m.DecrementActive(ctx, "wbs_top")

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)
	total, ok := sumOf(t, rm, "wbs.mcp.tool.active_requests")
	require.True(t, ok)
	assert.Equal(t, int64(1), total)
}

func TestToolCallsAreMeasured(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	s := newTestServer(t, &Config{Metrics: NewMetricsWithMeter(tt.Meter(instrumentationName), nil)})
	ctx := context.Background()

	_, err := s.score(ctx, forestInput{Lines: draftLines})
	require.NoError(t, err)
	_, err = s.score(ctx, forestInput{})
	require.Error(t, err)

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)
	total, _ := sumOf(t, rm, "wbs.mcp.tool.invocations_total")
	assert.Equal(t, int64(2), total)
	total, _ = sumOf(t, rm, "wbs.mcp.tool.errors_total")
	assert.Equal(t, int64(1), total)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"empty input", errNoTasks, "empty_input"},
		{"out of order", fmt.Errorf("line 2: %w", wbs.ErrOutOfOrder), "validation_error"},
		{"unknown key", priority.ErrUnknownKey, "validation_error"},
		{"canceled", context.Canceled, "canceled"},
		{"generic error", errors.New("something went wrong"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, categorizeError(tt.err))
		})
	}
}
