package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/messages"
	"github.com/draftea/order-flow/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// FailureReasonKey is the span attribute carrying the failure reason
const FailureReasonKey = "failure.reason"

// HandleOrderFailure records a failed order and closes its flow with failure.
// It is the only place a failed flow ends.
type HandleOrderFailure struct {
	tracer       *flow.Tracer
	workDuration time.Duration
	logger       *slog.Logger
}

// NewHandleOrderFailure creates a new HandleOrderFailure use case
func NewHandleOrderFailure(tracer *flow.Tracer, workDuration time.Duration, logger *slog.Logger) *HandleOrderFailure {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandleOrderFailure{
		tracer:       tracer,
		workDuration: workDuration,
		logger:       logger,
	}
}

// Execute handles one order-failures payload
func (uc *HandleOrderFailure) Execute(ctx context.Context, payload string) error {
	failure, err := messages.ParseOrderFailure(payload)
	if err != nil {
		dropMessage(ctx, uc.logger, bus.OrderFailures, payload, err)
		return nil
	}

	ctx, span := uc.tracer.StartStage(ctx, "handle-order-failure", failure.CorrelationID,
		attribute.String(FailureReasonKey, failure.Reason),
		attribute.String(flow.DetailKey, failure.Reason),
	)
	defer span.End()

	time.Sleep(uc.workDuration)

	// the reason stays on the span; boundary events carry only id and outcome
	if err := uc.tracer.EndFlow(ctx, flow.OrderProcessing, failure.CorrelationID, flow.OutcomeFailure); err != nil {
		return errors.Wrap(err, "failed to mark flow end")
	}

	uc.logger.InfoContext(ctx, "order failed",
		"correlation_id", failure.CorrelationID.String(),
		"reason", failure.Reason,
	)
	telemetry.RecordCounter(ctx, "orders_completed_total", "Total order flows ended",
		1, attribute.String(flow.OutcomeKey, string(flow.OutcomeFailure)))

	return nil
}
