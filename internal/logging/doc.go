// Package logging provides structured logging for the wbs tools.
//
// # Overview
//
// Logger wraps Zap with:
//   - A Trace level below Debug
//   - stderr output, plus an optional OpenTelemetry log output
//   - Context correlation fields (trace_id, project.id, request.id)
//   - Field-name and pattern based secret redaction
//   - Per-level sampling (errors are never sampled)
//
// Logs go to stderr so command output on stdout stays machine-readable.
//
// # Usage
//
//	cfg, err := logging.FromSettings("debug", "console")
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//
//	ctx = logging.WithProjectID(ctx, project.ID)
//	logger.Info(ctx, "scoring pass complete", zap.Int("tasks", n))
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "merged fragments", zap.Int("count", 2))
//	tl.AssertLogged(t, zapcore.InfoLevel, "merged")
//	tl.AssertField(t, "merged fragments", "count", int64(2))
package logging
