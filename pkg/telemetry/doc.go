// Package telemetry provides logging, tracing and metrics for the handler
// runtime.
//
// Logging uses zerolog, tracing uses OpenTelemetry (OTLP over gRPC or
// stdout), and metrics are Prometheus collectors on a private registry.
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	tel.StartMetricsServer()
//
// Handlers take a zerolog.Logger; pass tel.Logger.Zerolog(). Metrics and
// tracer methods are safe to call when the corresponding component is
// disabled.
package telemetry
