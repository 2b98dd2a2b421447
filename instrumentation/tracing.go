package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never log actual sensitive values (authorization codes,
// access tokens, signed identity tokens, client secrets) in traces or
// metrics. Only log metadata such as provider names, operation names and
// validity outcomes.
const (
	// Login flow attributes - SAFE to use for metadata only
	AttrProvider  = "login.provider"   // Provider name (e.g. "facebook")
	AttrSubject   = "login.subject"    // Provider-prefixed subject id (non-secret)
	AttrValid     = "login.valid"      // Whether the provider confirmed the token (boolean)
	AttrError     = "login.error"      // Error code
	AttrEndpoint  = "login.endpoint"   // Logical endpoint name
	AttrOperation = "provider.op"      // Provider operation ("exchange_code", "introspect")

	// HTTP attributes (in addition to standard semantic conventions)
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}
