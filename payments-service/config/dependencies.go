package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftea/order-flow/payments-service/application"
	"github.com/draftea/order-flow/payments-service/domain"
	"github.com/draftea/order-flow/payments-service/handlers"
	"github.com/draftea/order-flow/shared/bus"
	sharedconfig "github.com/draftea/order-flow/shared/config"
	"github.com/draftea/order-flow/shared/flow"
	sharedinfra "github.com/draftea/order-flow/shared/infrastructure"
	"github.com/draftea/order-flow/shared/telemetry"
)

type Dependencies struct {
	// Infrastructure
	*sharedinfra.Runtime
	Router *bus.Router

	// Domain
	Decider domain.Decider

	// Use Cases
	ProcessPayment *application.ProcessPayment

	// Event Handlers
	PaymentEventHandlers *handlers.PaymentEventHandlers
}

func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *slog.Logger, opts ...sharedinfra.RuntimeOption) (*Dependencies, error) {
	decider, err := domain.NewRandomDecider(cfg.Stages.PaymentSuccessRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment decider: %w", err)
	}

	rt, err := sharedinfra.NewRuntime(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}

	deps := &Dependencies{
		Runtime: rt,
		Decider: decider,
	}

	// Initialize use cases
	deps.ProcessPayment = application.NewProcessPayment(rt.Bus, decider, flow.NewTracer(rt.Telemetry.Tracer()), cfg.Stages.PaymentDelay, logger)

	// Initialize handlers
	deps.PaymentEventHandlers = handlers.NewPaymentEventHandlers(deps.ProcessPayment)

	deps.Router = bus.NewRouter()
	deps.Router.Use(telemetry.HandlerMiddleware(rt.Telemetry))
	deps.PaymentEventHandlers.RegisterRoutes(deps.Router)

	return deps, nil
}

// Start subscribes the payment stage to its channels
func (d *Dependencies) Start(ctx context.Context) error {
	return d.Router.Run(ctx, d.Bus)
}
