package handlers

import (
	"context"
	"testing"

	"github.com/draftea/order-flow/payments-service/application"
	"github.com/draftea/order-flow/payments-service/domain"
	"github.com/draftea/order-flow/payments-service/mocks"
	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/flow"
	sharedmocks "github.com/draftea/order-flow/shared/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestPaymentEventHandlers_RegisterRoutes(t *testing.T) {
	publisher := sharedmocks.NewMockPublisher(t)
	decider := mocks.NewMockDecider(t)
	decider.EXPECT().Decide(mock.Anything, mock.Anything).Return(domain.DecisionDeclined).Once()
	publisher.EXPECT().Publish(mock.Anything, bus.OrderFailures, "order-9|payment-failed").Return(nil).Once()

	uc := application.NewProcessPayment(publisher, decider, flow.NewTracer(noop.NewTracerProvider().Tracer("test")), 0, nil)
	router := bus.NewRouter()
	NewPaymentEventHandlers(uc).RegisterRoutes(router)

	assert.Equal(t, []bus.Channel{bus.PaymentRequests}, router.Channels())

	handler, ok := router.Handler(bus.PaymentRequests)
	require.True(t, ok)
	require.NoError(t, handler.Handle(context.Background(), bus.NewMessage(bus.PaymentRequests, "order-9|12.50")))
}
