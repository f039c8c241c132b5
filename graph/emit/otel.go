package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelSink implements Sink by creating an OpenTelemetry span per event.
//
// Each event becomes a span:
//   - Name: event.Type ("node_started", "workflow_completed", ...)
//   - Attributes: run id, seq id, producer id, and every Payload field
//   - Status: error, if Payload["error"] is set
//
// Spans are point-in-time (created and ended immediately) since events
// represent occurrences, not durations.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink creates an OTelSink from a tracer, e.g.
// otel.Tracer("flowforge").
func NewOTelSink(tracer trace.Tracer) *OTelSink {
	return &OTelSink{tracer: tracer}
}

// Emit creates and immediately ends a span for event.
func (o *OTelSink) Emit(event Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Type)
	defer span.End()
	o.annotate(span, event)
}

// EmitBatch creates a span per event.
func (o *OTelSink) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Type)
		o.annotate(span, event)
		span.End()
	}
	return nil
}

// Flush force-flushes the active tracer provider, if it supports it.
func (o *OTelSink) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelSink) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("flowforge.run_id", event.RunID),
		attribute.Int64("flowforge.seq_id", event.SeqID),
		attribute.String("flowforge.producer_id", event.ProducerID),
	)
	for key, value := range event.Payload {
		attrKey := "flowforge.payload." + key
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
	if errMsg, ok := event.Payload["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}
