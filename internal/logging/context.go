package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type projectCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 4)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := ProjectIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("project.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

func validateID(id, name string) error {
	switch {
	case id == "":
		return fmt.Errorf("%s cannot be empty", name)
	case len(id) > maxIDLen:
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	case !idPattern.MatchString(id):
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// WithProjectID adds a project ID to ctx.
// Panics if the ID is empty or contains invalid characters.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	if err := validateID(projectID, "projectID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, projectCtxKey{}, projectID)
}

// ProjectIDFromContext returns the project ID in ctx, if any.
func ProjectIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(projectCtxKey{}).(string)
	return id
}

// WithRequestID adds a request ID to ctx. Invalid IDs are dropped rather
// than rejected because they arrive from clients.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if validateID(requestID, "requestID") != nil {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request ID in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return Wrap(nil)
}
