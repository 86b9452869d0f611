// Package telemetry provides observability instrumentation for tomlsnap.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing behind one
// Telemetry handle. All of it is optional: the conversion core runs with no
// telemetry configured, and disabled components degrade to no-ops.
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
// The conversion ID minted per parse-and-flatten pass correlates log lines,
// spans, metrics samples, and events; see EnsureConversionID.
package telemetry
