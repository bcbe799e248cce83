package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-flow/payments-service/domain"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/messages"
	"github.com/draftea/order-flow/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DecisionKey is the span attribute carrying the payment decision
const DecisionKey = "payment.decision"

// ProcessPayment charges an order and routes it to fulfillment or to the failure stage.
// It never marks flow boundaries.
type ProcessPayment struct {
	publisher    bus.Publisher
	decider      domain.Decider
	tracer       *flow.Tracer
	workDuration time.Duration
	logger       *slog.Logger
}

// NewProcessPayment creates a new ProcessPayment use case
func NewProcessPayment(publisher bus.Publisher, decider domain.Decider, tracer *flow.Tracer, workDuration time.Duration, logger *slog.Logger) *ProcessPayment {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessPayment{
		publisher:    publisher,
		decider:      decider,
		tracer:       tracer,
		workDuration: workDuration,
		logger:       logger,
	}
}

// Execute handles one payment-requests payload. Malformed payloads are logged and dropped.
func (uc *ProcessPayment) Execute(ctx context.Context, payload string) error {
	request, err := messages.ParsePaymentRequest(payload)
	if err != nil {
		uc.logger.WarnContext(ctx, "dropping malformed payment request",
			"channel", bus.PaymentRequests.String(),
			"payload", payload,
			slog.String("error", err.Error()),
		)
		telemetry.RecordCounter(ctx, "messages_dropped_total", "Total malformed messages dropped",
			1, attribute.String("channel", bus.PaymentRequests.String()))
		return nil
	}

	ctx, span := uc.tracer.StartStage(ctx, "process-payment", request.CorrelationID,
		attribute.String("payment.amount", messages.FormatAmount(request.Amount)),
	)
	defer span.End()

	time.Sleep(uc.workDuration)

	decision := uc.decider.Decide(ctx, request.Amount)
	span.SetAttributes(
		attribute.String(DecisionKey, decision.String()),
		attribute.String(flow.DetailKey, decision.String()),
	)
	telemetry.RecordCounter(ctx, "payments_decided_total", "Total payment decisions",
		1, attribute.String("decision", decision.String()))

	channel, next := bus.FulfillmentRequests, messages.FulfillmentRequest{CorrelationID: request.CorrelationID}.Encode()
	if !decision.Approved() {
		channel = bus.OrderFailures
		next = messages.OrderFailure{CorrelationID: request.CorrelationID, Reason: messages.ReasonPaymentFailed}.Encode()
	}

	if err := uc.publisher.Publish(ctx, channel, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		uc.logger.ErrorContext(ctx, "flow left open: payment result not published",
			"correlation_id", request.CorrelationID.String(),
			"channel", channel.String(),
			slog.String("error", err.Error()),
		)
		return errors.Wrapf(err, "failed to publish payment result for %s", request.CorrelationID)
	}

	return nil
}
