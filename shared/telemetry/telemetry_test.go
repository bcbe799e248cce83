package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/draftea/order-flow/shared/bus"
	"github.com/draftea/order-flow/shared/config"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
)

const correlationID = models.CorrelationID("order-7f6c1a52-5b1e-4a8e-9a43-3f5b2c9d0e11")

type recordWriter struct {
	mu      sync.Mutex
	records []flow.Record
	err     error
}

func (w *recordWriter) SaveRecords(_ context.Context, records []flow.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, records...)
	return nil
}

func (w *recordWriter) all() []flow.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]flow.Record(nil), w.records...)
}

func newTestTelemetry(t *testing.T, opts ...Option) *Telemetry {
	t.Helper()
	opts = append(opts, WithoutGlobalProviders())
	tel, shutdown, err := InitTelemetry(context.Background(), Config{ServiceName: "orders-service", ServiceVersion: "1.0.0"}, opts...)
	require.NoError(t, err)
	t.Cleanup(shutdown)
	return tel
}

func scrape(t *testing.T, tel *Telemetry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestFlowRecordExporter_ExportsBoundaryEvents(t *testing.T) {
	writer := &recordWriter{}
	tel := newTestTelemetry(t, WithSyncSpanExporter(NewFlowRecordExporter(writer, nil)))
	tracer := flow.NewTracer(tel.Tracer())

	ctx, span := tracer.StartStage(context.Background(), "create-order", correlationID)
	require.NoError(t, tracer.BeginFlow(ctx, flow.OrderProcessing, correlationID))
	span.End()

	records := writer.all()
	require.Len(t, records, 2)
	assert.Equal(t, flow.RecordKindStage, records[0].Kind)
	assert.Equal(t, "orders-service", records[0].Service)
	assert.Equal(t, flow.RecordKindBoundary, records[1].Kind)
	assert.Equal(t, flow.BoundaryStart, records[1].Boundary)
	assert.Equal(t, correlationID, records[1].CorrelationID)
}

func TestFlowRecordExporter_SkipsUncorrelatedSpans(t *testing.T) {
	writer := &recordWriter{err: errors.New("must not be called")}
	exporter := NewFlowRecordExporter(writer, nil)
	tel := newTestTelemetry(t, WithSyncSpanExporter(exporter))

	_, span := tel.StartSpan(context.Background(), "GET /health")
	span.End()

	assert.Empty(t, writer.all())
}

type capturingExporter struct {
	mu    sync.Mutex
	spans []traceSDK.ReadOnlySpan
}

func (e *capturingExporter) ExportSpans(_ context.Context, spans []traceSDK.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = append(e.spans, spans...)
	return nil
}

func (e *capturingExporter) Shutdown(context.Context) error { return nil }

func TestFlowRecordExporter_WrapsWriterErrors(t *testing.T) {
	spans := &capturingExporter{}
	tel := newTestTelemetry(t, WithSyncSpanExporter(spans))
	tracer := flow.NewTracer(tel.Tracer())

	ctx, span := tracer.StartStage(context.Background(), "fulfill-order", correlationID)
	require.NoError(t, tracer.EndFlow(ctx, flow.OrderProcessing, correlationID, flow.OutcomeSuccess))
	span.End()

	exporter := NewFlowRecordExporter(&recordWriter{err: errors.New("connection refused")}, nil)
	err := exporter.ExportSpans(context.Background(), spans.spans)

	assert.ErrorContains(t, err, "failed to save flow records")
	assert.ErrorContains(t, err, "connection refused")
}

func TestMiddleware_RecordsRouteMetrics(t *testing.T) {
	tel := newTestTelemetry(t)

	r := chi.NewRouter()
	r.Use(Middleware(tel))
	r.Get("/flows/{correlationId}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, FromContext(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/flows/"+correlationID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := scrape(t, tel)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `path="/flows/{correlationId}"`)
	assert.NotContains(t, body, correlationID.String())
}

func TestHandlerMiddleware_PassesThroughErrors(t *testing.T) {
	tel := newTestTelemetry(t)
	handlerErr := errors.New("boom")

	handler := HandlerMiddleware(tel)(bus.HandlerFunc(func(ctx context.Context, _ *bus.Message) error {
		assert.Equal(t, "orders-service", GetServiceName(ctx))
		return handlerErr
	}))

	err := handler.Handle(context.Background(), bus.NewMessage(bus.OrderFailures, "order-1|payment-failed"))
	assert.ErrorIs(t, err, handlerErr)

	body := scrape(t, tel)
	assert.Contains(t, body, "bus_messages_handled_total")
	assert.Contains(t, body, `channel="order-failures"`)
	assert.Contains(t, body, `status="error"`)
}

func TestFromServiceConfig(t *testing.T) {
	cfg := &config.Config{
		ServiceName: "audit-service",
		Telemetry:   config.Telemetry{Enabled: true, OTLPEndpoint: "collector:4318", ServiceVersion: "2.0.0"},
	}

	tc := FromServiceConfig(cfg)

	assert.Equal(t, "audit-service", tc.ServiceName)
	assert.Equal(t, "2.0.0", tc.ServiceVersion)
	assert.Equal(t, "collector:4318", tc.OTLPEndpoint)
	assert.True(t, tc.ExportOTLP)
	assert.False(t, FromServiceConfig(&config.Config{ServiceName: "payments-service"}).ExportOTLP)
	assert.Equal(t, "unknown", GetServiceName(context.Background()))
}
