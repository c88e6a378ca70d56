// Package telemetry wires OpenTelemetry tracing and metrics for the wbs
// binaries.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. When telemetry is disabled, or a provider cannot be built,
// the global no-op providers stay in place and callers keep working.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
