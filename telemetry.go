package ygggo_db

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/yggai/ygggo_db"
	instrumentationVersion = "v0.1.0"
)

// EnableTelemetry enables or disables OpenTelemetry tracing for this connection
func (c *Conn) EnableTelemetry(enabled bool) {
	if c == nil {
		return
	}
	c.telemetryEnabled = enabled
}

// startSpan creates a new span with common database attributes. The tracer
// is looked up on every call so a provider installed later is honoured.
func (c *Conn) startSpan(ctx context.Context, operation string, query string) (context.Context, trace.Span) {
	if c == nil || !c.telemetryEnabled {
		return ctx, trace.SpanFromContext(ctx)
	}

	tracer := otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
	ctx, span := tracer.Start(ctx, "ygggo_db."+operation, trace.WithSpanKind(trace.SpanKindClient))

	span.SetAttributes(
		attribute.String("db.system", c.dialect.system()),
		attribute.String("db.operation", operation),
	)
	if c.cfg.Schema != "" {
		span.SetAttributes(attribute.String("db.name", c.cfg.Schema))
	}
	if query != "" {
		span.SetAttributes(attribute.String("db.statement", query))
	}

	return ctx, span
}

// finishSpan completes a span with error handling
func (c *Conn) finishSpan(span trace.Span, err error) {
	if c == nil || !c.telemetryEnabled {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		code := inspectDriverError(err).code
		if de, ok := classified(err); ok {
			code = de.Code()
		}
		if code != "" {
			span.SetAttributes(attribute.String("db.response.status_code", code))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
