package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-flow/orders-service/domain"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/messages"
	"github.com/draftea/order-flow/shared/models"
	"github.com/draftea/order-flow/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrPublishFailed is returned when the payment request could not be handed to the bus.
// The flow start was already recorded, so the flow stays open.
var ErrPublishFailed = errors.New("failed to publish payment request")

// PlaceOrderCommand represents the command to place an order
type PlaceOrderCommand struct {
	Amount    decimal.Decimal
	ProductID string
}

// PlaceOrderResponse represents the response after accepting an order
type PlaceOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// PlaceOrder starts an order flow and hands the order to the payment stage
type PlaceOrder struct {
	publisher    bus.Publisher
	tracer       *flow.Tracer
	workDuration time.Duration
	newOrderID   func() models.ID
	logger       *slog.Logger
}

// NewPlaceOrder creates a new PlaceOrder use case
func NewPlaceOrder(publisher bus.Publisher, tracer *flow.Tracer, workDuration time.Duration, logger *slog.Logger) *PlaceOrder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaceOrder{
		publisher:    publisher,
		tracer:       tracer,
		workDuration: workDuration,
		newOrderID:   models.GenerateUUID,
		logger:       logger,
	}
}

// Execute validates the order, marks the flow start and publishes the payment request.
// It returns without waiting for any downstream stage.
func (uc *PlaceOrder) Execute(ctx context.Context, cmd *PlaceOrderCommand) (*PlaceOrderResponse, error) {
	order := domain.OrderRequest{Amount: cmd.Amount, ProductID: cmd.ProductID}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	orderID := uc.newOrderID()
	correlationID := models.NewCorrelationID(orderID)

	// the request context must not abort a flow that already started
	ctx = context.WithoutCancel(ctx)

	ctx, span := uc.tracer.StartStage(ctx, "create-order", correlationID,
		attribute.String("order.product_id", order.ProductID),
		attribute.String("order.amount", messages.FormatAmount(order.Amount)),
	)
	defer span.End()

	if err := uc.tracer.BeginFlow(ctx, flow.OrderProcessing, correlationID); err != nil {
		return nil, errors.Wrap(err, "failed to mark flow start")
	}

	time.Sleep(uc.workDuration)

	payload := messages.PaymentRequest{CorrelationID: correlationID, Amount: order.Amount}.Encode()
	if err := uc.publisher.Publish(ctx, bus.PaymentRequests, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		uc.logger.ErrorContext(ctx, "flow left open: payment request not published",
			"correlation_id", correlationID.String(),
			"channel", bus.PaymentRequests.String(),
			slog.String("error", err.Error()),
		)
		return nil, errors.Wrapf(ErrPublishFailed, "%s: %v", correlationID, err)
	}

	telemetry.RecordCounter(ctx, "orders_placed_total", "Total orders accepted by intake", 1)

	return &PlaceOrderResponse{
		OrderID: orderID.String(),
		Status:  domain.StatusProcessing,
	}, nil
}
