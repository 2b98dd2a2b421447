// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for
// the social-login service.
//
// It exposes metrics (counters and histograms for the login flow, HTTP layer
// and provider API calls) and nil-safe tracing helpers so that callers can
// instrument optionally: a nil span or a disabled instrumentation instance
// costs nothing.
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "social-login",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	handler.SetInstrumentation(inst)
//
// Providers are currently no-op; wiring real exporters (Prometheus, OTLP)
// happens behind the same seam without breaking callers.
package instrumentation
