package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftea/order-flow/orders-service/application"
	"github.com/draftea/order-flow/orders-service/handlers"
	sharedconfig "github.com/draftea/order-flow/shared/config"
	"github.com/draftea/order-flow/shared/flow"
	sharedinfra "github.com/draftea/order-flow/shared/infrastructure"
)

type Dependencies struct {
	// Infrastructure
	*sharedinfra.Runtime

	// Use Cases
	PlaceOrder *application.PlaceOrder

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers
}

func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *slog.Logger, opts ...sharedinfra.RuntimeOption) (*Dependencies, error) {
	rt, err := sharedinfra.NewRuntime(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}

	deps := &Dependencies{Runtime: rt}

	// Initialize use cases
	deps.PlaceOrder = application.NewPlaceOrder(rt.Bus, flow.NewTracer(rt.Telemetry.Tracer()), cfg.Stages.IntakeDelay, logger)

	// Initialize handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(deps.PlaceOrder, logger)

	return deps, nil
}
