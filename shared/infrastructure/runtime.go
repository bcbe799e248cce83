package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/config"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/telemetry"
)

// Runtime is the infrastructure every service runs on: the bus, telemetry and the optional
// flow record store that telemetry exports to.
type Runtime struct {
	Bus       bus.Bus
	FlowStore flow.RecordStore
	Telemetry *telemetry.Telemetry

	ownsBus           bool
	closeFlowStore    func() error
	telemetryShutdown func()
}

type runtimeOptions struct {
	bus           bus.Bus
	flowStore     flow.RecordStore
	telemetryOpts []telemetry.Option
	noBus         bool
}

// RuntimeOption overrides parts of the runtime built from config
type RuntimeOption func(*runtimeOptions)

// WithSharedBus runs on a bus owned by the caller. Close leaves it open.
func WithSharedBus(b bus.Bus) RuntimeOption {
	return func(o *runtimeOptions) {
		o.bus = b
	}
}

// WithSharedFlowStore exports flow records to a store owned by the caller
func WithSharedFlowStore(store flow.RecordStore) RuntimeOption {
	return func(o *runtimeOptions) {
		o.flowStore = store
	}
}

// WithoutBus builds a runtime for components that neither publish nor subscribe
func WithoutBus() RuntimeOption {
	return func(o *runtimeOptions) {
		o.noBus = true
	}
}

// WithTelemetryOptions passes extra options to telemetry initialization
func WithTelemetryOptions(opts ...telemetry.Option) RuntimeOption {
	return func(o *runtimeOptions) {
		o.telemetryOpts = append(o.telemetryOpts, opts...)
	}
}

// NewRuntime opens the flow store, starts telemetry and connects the bus selected by cfg
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{closeFlowStore: func() error { return nil }}

	if o.flowStore != nil {
		rt.FlowStore = o.flowStore
	} else {
		store, closeStore, err := NewFlowStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open flow store: %w", err)
		}
		rt.FlowStore = store
		rt.closeFlowStore = closeStore
	}

	telOpts := o.telemetryOpts
	if rt.FlowStore != nil {
		telOpts = append(telOpts, telemetry.WithSpanExporter(telemetry.NewFlowRecordExporter(rt.FlowStore, logger)))
	}
	tel, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.FromServiceConfig(cfg), telOpts...)
	if err != nil {
		_ = rt.closeFlowStore()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	rt.Telemetry = tel
	rt.telemetryShutdown = shutdown

	switch {
	case o.noBus:
	case o.bus != nil:
		rt.Bus = o.bus
	default:
		b, err := NewBus(ctx, cfg, logger)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to connect bus: %w", err)
		}
		rt.Bus = b
		rt.ownsBus = true
	}

	return rt, nil
}

// Close drains the bus, flushes telemetry and then closes the flow store
func (r *Runtime) Close() error {
	var errs []error

	if r.ownsBus && r.Bus != nil {
		if err := r.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close bus: %w", err))
		}
	}

	if r.telemetryShutdown != nil {
		r.telemetryShutdown()
	}

	if r.closeFlowStore != nil {
		if err := r.closeFlowStore(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close flow store: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing runtime: %v", errs)
	}

	return nil
}
