package flow

import (
	"context"

	"github.com/draftea/order-flow/shared/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DetailKey is an optional stage span attribute describing what the stage decided
const DetailKey = "flow.detail"

// Tracer emits flow boundary events on top of an OpenTelemetry tracer.
// It keeps no state between BeginFlow and EndFlow; they may run in different processes.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a flow tracer. A nil tracer falls back to the global provider.
func NewTracer(tracer trace.Tracer) *Tracer {
	if tracer == nil {
		tracer = otel.Tracer("flow")
	}
	return &Tracer{tracer: tracer}
}

// StartStage starts the span of one unit of work tagged with the correlation id
func (t *Tracer) StartStage(ctx context.Context, name string, correlationID models.CorrelationID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(CorrelationIDKey, correlationID.String()))
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// BeginFlow marks the start of a flow
func (t *Tracer) BeginFlow(ctx context.Context, flowName Name, correlationID models.CorrelationID) error {
	return t.Emit(ctx, Event{
		FlowName:      flowName,
		CorrelationID: correlationID,
		Boundary:      BoundaryStart,
		Outcome:       OutcomeNone,
	})
}

// EndFlow marks the end of a flow with its terminal outcome
func (t *Tracer) EndFlow(ctx context.Context, flowName Name, correlationID models.CorrelationID, outcome Outcome) error {
	return t.Emit(ctx, Event{
		FlowName:      flowName,
		CorrelationID: correlationID,
		Boundary:      BoundaryEnd,
		Outcome:       outcome,
	})
}

// Emit adds the boundary event to the recording span in ctx, or to a dedicated
// span named after the event when there is none.
func (t *Tracer) Emit(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String(CorrelationIDKey, event.CorrelationID.String()),
	}
	if event.Boundary == BoundaryEnd {
		attrs = append(attrs, attribute.String(OutcomeKey, string(event.Outcome)))
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		_, span = t.StartStage(ctx, event.Name(), event.CorrelationID)
		defer span.End()
	}

	span.AddEvent(event.Name(), trace.WithAttributes(attrs...))
	return nil
}
