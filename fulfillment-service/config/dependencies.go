package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftea/order-flow/fulfillment-service/application"
	"github.com/draftea/order-flow/fulfillment-service/handlers"
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

	// Use Cases
	FulfillOrder       *application.FulfillOrder
	HandleOrderFailure *application.HandleOrderFailure

	// Event Handlers
	FulfillmentEventHandlers *handlers.FulfillmentEventHandlers
}

func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *slog.Logger, opts ...sharedinfra.RuntimeOption) (*Dependencies, error) {
	rt, err := sharedinfra.NewRuntime(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}

	deps := &Dependencies{Runtime: rt}

	// Initialize use cases
	tracer := flow.NewTracer(rt.Telemetry.Tracer())
	deps.FulfillOrder = application.NewFulfillOrder(tracer, cfg.Stages.FulfillmentDelay, logger)
	deps.HandleOrderFailure = application.NewHandleOrderFailure(tracer, cfg.Stages.FailureDelay, logger)

	// Initialize handlers
	deps.FulfillmentEventHandlers = handlers.NewFulfillmentEventHandlers(deps.FulfillOrder, deps.HandleOrderFailure)

	deps.Router = bus.NewRouter()
	deps.Router.Use(telemetry.HandlerMiddleware(rt.Telemetry))
	deps.FulfillmentEventHandlers.RegisterRoutes(deps.Router)

	return deps, nil
}

// Start subscribes both stages to their channels
func (d *Dependencies) Start(ctx context.Context) error {
	return d.Router.Run(ctx, d.Bus)
}
