package handlers

import (
	"context"

	"github.com/draftea/order-flow/fulfillment-service/application"
	"github.com/draftea/order-flow/shared/bus"
)

// FulfillmentEventHandlers handles the messages consumed by the fulfillment and failure stages
type FulfillmentEventHandlers struct {
	fulfillOrder       *application.FulfillOrder
	handleOrderFailure *application.HandleOrderFailure
}

// NewFulfillmentEventHandlers creates new fulfillment event handlers
func NewFulfillmentEventHandlers(fulfillOrder *application.FulfillOrder, handleOrderFailure *application.HandleOrderFailure) *FulfillmentEventHandlers {
	return &FulfillmentEventHandlers{
		fulfillOrder:       fulfillOrder,
		handleOrderFailure: handleOrderFailure,
	}
}

// HandleFulfillmentRequested handles fulfillment-requests deliveries
func (h *FulfillmentEventHandlers) HandleFulfillmentRequested(ctx context.Context, msg *bus.Message) error {
	return h.fulfillOrder.Execute(ctx, msg.Payload)
}

// HandleOrderFailed handles order-failures deliveries
func (h *FulfillmentEventHandlers) HandleOrderFailed(ctx context.Context, msg *bus.Message) error {
	return h.handleOrderFailure.Execute(ctx, msg.Payload)
}

// RegisterRoutes registers both channels on the router
func (h *FulfillmentEventHandlers) RegisterRoutes(r *bus.Router) {
	r.HandleFunc(bus.FulfillmentRequests, h.HandleFulfillmentRequested)
	r.HandleFunc(bus.OrderFailures, h.HandleOrderFailed)
}
