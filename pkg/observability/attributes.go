package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Event attributes.
var (
	AttrOperation    = attribute.Key("nostrevent.operation")
	AttrEventKind    = attribute.Key("nostrevent.event.kind")
	AttrEventID      = attribute.Key("nostrevent.event.id")
	AttrBatchSize    = attribute.Key("nostrevent.batch.size")
	AttrRunID        = attribute.Key("nostrevent.run.id")
	AttrRejectReason = attribute.Key("nostrevent.reject.reason")
)

// Operation names.
const (
	OpSign        = "sign"
	OpVerify      = "verify"
	OpVerifyBatch = "verify_batch"
)

// EventAttributes identifies one event on a span. The values are
// unbounded, so they never become metric attributes.
func EventAttributes(kind int, id string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrEventKind.Int(kind)}
	if id != "" {
		attrs = append(attrs, AttrEventID.String(id))
	}
	return attrs
}

// BatchAttributes identifies a verification run on a span.
func BatchAttributes(runID string, size int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrBatchSize.Int(size),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus marks the current span failed when err is non-nil.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
