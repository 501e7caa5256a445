// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup installs OTLP/HTTP exporters as the global providers when enabled;
// otherwise the otel no-op providers stay in place and every instrument is
// free to use.
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "peer-registry", version, env)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "peers.update")
//	defer span.End()
//
// Health aggregates component health into the /health response.
package observability
