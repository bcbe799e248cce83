package telemetry

import (
	"context"
	"log/slog"

	"github.com/draftea/order-flow/shared/flow"
	"github.com/pkg/errors"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
)

// RecordWriter persists flow records
type RecordWriter interface {
	SaveRecords(ctx context.Context, records []flow.Record) error
}

// FlowRecordExporter turns ended stage spans into flow records for the auditor.
// Spans without a correlation id are skipped.
type FlowRecordExporter struct {
	writer RecordWriter
	logger *slog.Logger
}

var _ traceSDK.SpanExporter = (*FlowRecordExporter)(nil)

func NewFlowRecordExporter(writer RecordWriter, logger *slog.Logger) *FlowRecordExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlowRecordExporter{writer: writer, logger: logger}
}

func (e *FlowRecordExporter) ExportSpans(ctx context.Context, spans []traceSDK.ReadOnlySpan) error {
	var records []flow.Record
	for _, span := range spans {
		records = append(records, flow.RecordsFromSpan(span)...)
	}
	if len(records) == 0 {
		return nil
	}

	if err := e.writer.SaveRecords(ctx, records); err != nil {
		e.logger.ErrorContext(ctx, "failed to save flow records", "count", len(records), slog.String("error", err.Error()))
		return errors.Wrap(err, "failed to save flow records")
	}
	return nil
}

func (e *FlowRecordExporter) Shutdown(context.Context) error {
	return nil
}
