// Command local-stack runs every stage and the auditor in one process on the in-memory bus
// and flow store.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	auditconfig "github.com/draftea/order-flow/audit-service/config"
	fulfillmentconfig "github.com/draftea/order-flow/fulfillment-service/config"
	ordersconfig "github.com/draftea/order-flow/orders-service/config"
	paymentsconfig "github.com/draftea/order-flow/payments-service/config"
	sharedconfig "github.com/draftea/order-flow/shared/config"
	sharedinfra "github.com/draftea/order-flow/shared/infrastructure"
	"github.com/draftea/order-flow/shared/logging"
	"github.com/draftea/order-flow/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const serviceName = "local-stack"

type stack struct {
	orders      *ordersconfig.Dependencies
	payments    *paymentsconfig.Dependencies
	fulfillment *fulfillmentconfig.Dependencies
	audit       *auditconfig.Dependencies
}

func main() {
	cfg, err := sharedconfig.ReadConfig(serviceName, ordersconfig.DefaultPort)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Bus.Driver = sharedconfig.BusDriverMemory
	if cfg.FlowStore.Driver == sharedconfig.FlowStoreNone {
		cfg.FlowStore.Driver = sharedconfig.FlowStoreMemory
	}

	logger := logging.New(serviceName, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus, err := sharedinfra.NewBus(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create bus: %v", err)
	}
	store, closeStore, err := sharedinfra.NewFlowStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open flow store: %v", err)
	}

	s, err := buildStack(ctx, cfg, logger,
		sharedinfra.WithSharedBus(eventBus),
		sharedinfra.WithSharedFlowStore(store),
	)
	if err != nil {
		log.Fatalf("Failed to build stack: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: setupRouter(s),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.payments.Start(gctx); err != nil {
			return err
		}
		return s.fulfillment.Start(gctx)
	})
	g.Go(func() error {
		logger.Info("serving", "port", cfg.Port, "flow_store", cfg.FlowStore.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("local stack stopped with error", slog.String("error", err.Error()))
	}

	// in-flight handlers still publish and export, so the bus goes before the stages and the store last
	if err := eventBus.Close(); err != nil {
		logger.Error("error closing bus", slog.String("error", err.Error()))
	}
	for _, closer := range []interface{ Close() error }{s.orders, s.payments, s.fulfillment, s.audit} {
		if err := closer.Close(); err != nil {
			logger.Error("error closing stage", slog.String("error", err.Error()))
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("error closing flow store", slog.String("error", err.Error()))
	}
}

func buildStack(ctx context.Context, cfg *sharedconfig.Config, logger *slog.Logger, opts ...sharedinfra.RuntimeOption) (*stack, error) {
	stage := func(name string) *sharedconfig.Config {
		c := *cfg
		c.ServiceName = name
		return &c
	}
	withLogger := func(name string) *slog.Logger {
		return logger.With("stage", name)
	}

	var (
		s   stack
		err error
	)
	if s.orders, err = ordersconfig.BuildDependencies(ctx, stage(ordersconfig.ServiceName), withLogger(ordersconfig.ServiceName), opts...); err != nil {
		return nil, err
	}
	if s.payments, err = paymentsconfig.BuildDependencies(ctx, stage(paymentsconfig.ServiceName), withLogger(paymentsconfig.ServiceName), opts...); err != nil {
		return nil, err
	}
	if s.fulfillment, err = fulfillmentconfig.BuildDependencies(ctx, stage(fulfillmentconfig.ServiceName), withLogger(fulfillmentconfig.ServiceName), opts...); err != nil {
		return nil, err
	}
	if s.audit, err = auditconfig.BuildDependencies(ctx, stage(auditconfig.ServiceName), withLogger(auditconfig.ServiceName), opts...); err != nil {
		return nil, err
	}
	return &s, nil
}

func setupRouter(s *stack) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(telemetry.Middleware(s.orders.Telemetry))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", s.orders.Telemetry.MetricsHandler())
	r.Handle("/metrics/payments", s.payments.Telemetry.MetricsHandler())
	r.Handle("/metrics/fulfillment", s.fulfillment.Telemetry.MetricsHandler())

	s.orders.OrderHandlers.RegisterRoutes(r)
	s.audit.FlowHandlers.RegisterRoutes(r)

	return r
}
