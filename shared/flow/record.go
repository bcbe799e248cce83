package flow

import (
	"strings"
	"time"

	"github.com/draftea/order-flow/shared/models"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceNameKey = attribute.Key("service.name")

// RecordKind tells boundary events apart from stage spans
type RecordKind string

const (
	RecordKindBoundary RecordKind = "boundary"
	RecordKindStage    RecordKind = "stage"
)

// Record is what an observer sees of a flow in the exported trace data:
// either one boundary event or one stage span tagged with a correlation id.
type Record struct {
	CorrelationID models.CorrelationID `json:"correlation_id"`
	Kind          RecordKind           `json:"kind"`
	FlowName      Name                 `json:"flow_name,omitempty"`
	Name          string               `json:"name"`
	Boundary      Boundary             `json:"boundary,omitempty"`
	Outcome       Outcome              `json:"outcome,omitempty"`
	Detail        string               `json:"detail,omitempty"`
	Service       string               `json:"service,omitempty"`
	TraceID       string               `json:"trace_id,omitempty"`
	SpanID        string               `json:"span_id,omitempty"`
	RecordedAt    time.Time            `json:"recorded_at"`
}

// ParseEventName splits flow.<flowName>.<boundary>
func ParseEventName(name string) (Name, Boundary, bool) {
	rest, ok := strings.CutPrefix(name, "flow.")
	if !ok {
		return "", "", false
	}

	idx := strings.LastIndex(rest, ".")
	if idx <= 0 {
		return "", "", false
	}

	boundary := Boundary(rest[idx+1:])
	if boundary != BoundaryStart && boundary != BoundaryEnd {
		return "", "", false
	}

	return Name(rest[:idx]), boundary, true
}

// RecordsFromSpan extracts the flow records carried by an ended span
func RecordsFromSpan(span sdktrace.ReadOnlySpan) []Record {
	var service string
	if res := span.Resource(); res != nil {
		if v, ok := res.Set().Value(serviceNameKey); ok {
			service = v.AsString()
		}
	}

	traceID := span.SpanContext().TraceID().String()
	spanID := span.SpanContext().SpanID().String()

	var records []Record

	spanAttrs := attribute.NewSet(span.Attributes()...)
	if v, ok := spanAttrs.Value(CorrelationIDKey); ok && v.AsString() != "" {
		detail, _ := spanAttrs.Value(DetailKey)
		records = append(records, Record{
			CorrelationID: models.CorrelationID(v.AsString()),
			Kind:          RecordKindStage,
			Name:          span.Name(),
			Detail:        detail.AsString(),
			Service:       service,
			TraceID:       traceID,
			SpanID:        spanID,
			RecordedAt:    span.StartTime(),
		})
	}

	for _, event := range span.Events() {
		flowName, boundary, ok := ParseEventName(event.Name)
		if !ok {
			continue
		}

		attrs := attribute.NewSet(event.Attributes...)
		correlationID, ok := attrs.Value(CorrelationIDKey)
		if !ok || correlationID.AsString() == "" {
			continue
		}

		outcome := OutcomeNone
		if boundary == BoundaryEnd {
			v, _ := attrs.Value(OutcomeKey)
			outcome = Outcome(v.AsString())
		}

		records = append(records, Record{
			CorrelationID: models.CorrelationID(correlationID.AsString()),
			Kind:          RecordKindBoundary,
			FlowName:      flowName,
			Name:          event.Name,
			Boundary:      boundary,
			Outcome:       outcome,
			Service:       service,
			TraceID:       traceID,
			SpanID:        spanID,
			RecordedAt:    event.Time,
		})
	}

	return records
}
