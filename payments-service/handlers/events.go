package handlers

import (
	"context"

	"github.com/draftea/order-flow/payments-service/application"
	"github.com/draftea/order-flow/shared/bus"
)

// PaymentEventHandlers handles the messages consumed by the payment stage
type PaymentEventHandlers struct {
	processPayment *application.ProcessPayment
}

// NewPaymentEventHandlers creates new payment event handlers
func NewPaymentEventHandlers(processPayment *application.ProcessPayment) *PaymentEventHandlers {
	return &PaymentEventHandlers{
		processPayment: processPayment,
	}
}

// HandlePaymentRequested handles payment-requests deliveries
func (h *PaymentEventHandlers) HandlePaymentRequested(ctx context.Context, msg *bus.Message) error {
	return h.processPayment.Execute(ctx, msg.Payload)
}

// RegisterRoutes registers the payment stage channels on the router
func (h *PaymentEventHandlers) RegisterRoutes(r *bus.Router) {
	r.HandleFunc(bus.PaymentRequests, h.HandlePaymentRequested)
}
