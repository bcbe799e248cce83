package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftea/order-flow/audit-service/application"
	"github.com/draftea/order-flow/audit-service/handlers"
	sharedconfig "github.com/draftea/order-flow/shared/config"
	sharedinfra "github.com/draftea/order-flow/shared/infrastructure"
)

type Dependencies struct {
	// Infrastructure
	*sharedinfra.Runtime

	// Use Cases
	GetFlow       *application.GetFlow
	ListAnomalies *application.ListAnomalies

	// HTTP Handlers
	FlowHandlers *handlers.FlowHandlers
}

// BuildDependencies wires the auditor. It only reads the flow store and never touches the bus.
func BuildDependencies(ctx context.Context, cfg *sharedconfig.Config, logger *slog.Logger, opts ...sharedinfra.RuntimeOption) (*Dependencies, error) {
	rt, err := sharedinfra.NewRuntime(ctx, cfg, logger, append(opts, sharedinfra.WithoutBus())...)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}
	if rt.FlowStore == nil {
		_ = rt.Close()
		return nil, fmt.Errorf("%s requires a flow store, flow_store.driver is %q", cfg.ServiceName, cfg.FlowStore.Driver)
	}

	deps := &Dependencies{Runtime: rt}

	// Initialize use cases
	deps.GetFlow = application.NewGetFlow(rt.FlowStore, application.DefaultHungAfter)
	deps.ListAnomalies = application.NewListAnomalies(rt.FlowStore, logger)

	// Initialize handlers
	deps.FlowHandlers = handlers.NewFlowHandlers(deps.GetFlow, deps.ListAnomalies, logger)

	return deps, nil
}
