// Package telemetry exports tutorialctl traces and metrics to an OTLP
// collector.
//
// Telemetry is off unless TUTORIAL_OTEL_ENABLED is true. When enabled, New
// installs global tracer and meter providers so that packages instrumented
// with otel.Tracer and otel.Meter report through them:
//
//	cfg, err := telemetry.LoadConfig(telemetry.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	tel, err := telemetry.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// # Environment
//
//	TUTORIAL_OTEL_ENABLED                  true|false
//	TUTORIAL_OTEL_ENDPOINT                 host:port (default localhost:4317)
//	TUTORIAL_OTEL_PROTOCOL                 grpc|http/protobuf
//	TUTORIAL_OTEL_INSECURE                 plaintext; only allowed for loopback endpoints
//	TUTORIAL_OTEL_SERVICE_NAME             resource service.name
//	TUTORIAL_OTEL_SAMPLING_RATE            0.0-1.0
//	TUTORIAL_OTEL_METRICS_ENABLED          true|false
//	TUTORIAL_OTEL_METRICS_EXPORT_INTERVAL  e.g. 15s
//	TUTORIAL_OTEL_SHUTDOWN_TIMEOUT         e.g. 5s
//
// Exporter failures never fail a command. The instance is marked degraded
// and the no-op providers stay in place.
//
// Tests capture spans and metrics with Record.
package telemetry
