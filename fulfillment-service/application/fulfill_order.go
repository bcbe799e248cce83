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

// FulfillOrder completes a paid order and closes its flow with success.
// It is the only place a successful flow ends.
type FulfillOrder struct {
	tracer       *flow.Tracer
	workDuration time.Duration
	logger       *slog.Logger
}

// NewFulfillOrder creates a new FulfillOrder use case
func NewFulfillOrder(tracer *flow.Tracer, workDuration time.Duration, logger *slog.Logger) *FulfillOrder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FulfillOrder{
		tracer:       tracer,
		workDuration: workDuration,
		logger:       logger,
	}
}

// Execute handles one fulfillment-requests payload. Every delivery ends the flow again;
// redeliveries are not deduplicated.
func (uc *FulfillOrder) Execute(ctx context.Context, payload string) error {
	request, err := messages.ParseFulfillmentRequest(payload)
	if err != nil {
		dropMessage(ctx, uc.logger, bus.FulfillmentRequests, payload, err)
		return nil
	}

	ctx, span := uc.tracer.StartStage(ctx, "fulfill-order", request.CorrelationID)
	defer span.End()

	time.Sleep(uc.workDuration)

	if err := uc.tracer.EndFlow(ctx, flow.OrderProcessing, request.CorrelationID, flow.OutcomeSuccess); err != nil {
		return errors.Wrap(err, "failed to mark flow end")
	}

	telemetry.RecordCounter(ctx, "orders_completed_total", "Total order flows ended",
		1, attribute.String(flow.OutcomeKey, string(flow.OutcomeSuccess)))

	return nil
}

func dropMessage(ctx context.Context, logger *slog.Logger, channel bus.Channel, payload string, err error) {
	logger.WarnContext(ctx, "dropping malformed message",
		"channel", channel.String(),
		"payload", payload,
		slog.String("error", err.Error()),
	)
	telemetry.RecordCounter(ctx, "messages_dropped_total", "Total malformed messages dropped",
		1, attribute.String("channel", channel.String()))
}
