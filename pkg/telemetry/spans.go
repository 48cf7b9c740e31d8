package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mydebugger/jwtkit"

// Span attribute keys for token processing.
var (
	AttrAlg          = attribute.Key("jwtkit.alg")
	AttrKid          = attribute.Key("jwtkit.kid")
	AttrTokenValid   = attribute.Key("jwtkit.token.valid")
	AttrDecodeError  = attribute.Key("jwtkit.decode.error")
	AttrFindingCount = attribute.Key("jwtkit.findings.count")
	AttrHighestSev   = attribute.Key("jwtkit.findings.highest")
	AttrJWKSURL      = attribute.Key("jwtkit.jwks.url")
	AttrJWKSCached   = attribute.Key("jwtkit.jwks.cached")
	AttrIssuer       = attribute.Key("jwtkit.issuer")
	AttrDecision     = attribute.Key("jwtkit.policy.decision")
)

// Tracer returns the project-wide OTel tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan creates a new span with the given name and optional attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// SetSpanError records an error on the span and sets its status to Error.
func SetSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK sets the span status to OK.
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
