package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/draftea/order-flow/audit-service/domain"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/models"
	"github.com/draftea/order-flow/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Defaults for anomaly queries
const (
	DefaultHungAfter = 30 * time.Second
	DefaultLookback  = time.Hour
)

// GetFlow reconstructs one flow from the stored trace records
type GetFlow struct {
	store     flow.RecordStore
	hungAfter time.Duration
	now       func() time.Time
}

// NewGetFlow creates a new GetFlow use case
func NewGetFlow(store flow.RecordStore, hungAfter time.Duration) *GetFlow {
	return &GetFlow{
		store:     store,
		hungAfter: hungAfter,
		now:       time.Now,
	}
}

// Execute returns the reconstructed flow or domain.ErrFlowNotFound
func (uc *GetFlow) Execute(ctx context.Context, correlationID models.CorrelationID) (*domain.Flow, error) {
	records, err := uc.store.ListByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load flow records")
	}

	return domain.Reconstruct(correlationID, records, uc.now(), uc.hungAfter)
}

// ListAnomaliesQuery selects which flows are audited
type ListAnomaliesQuery struct {
	// HungAfter is how long a flow may stay open before it counts as hung
	HungAfter time.Duration
	// Lookback limits the audit to boundaries recorded within this window
	Lookback time.Duration
}

// ListAnomalies audits every flow with boundaries in the lookback window
type ListAnomalies struct {
	store  flow.RecordStore
	now    func() time.Time
	logger *slog.Logger
}

// NewListAnomalies creates a new ListAnomalies use case
func NewListAnomalies(store flow.RecordStore, logger *slog.Logger) *ListAnomalies {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListAnomalies{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Execute returns the anomalies found, grouped in the order flows first appear
func (uc *ListAnomalies) Execute(ctx context.Context, query ListAnomaliesQuery) ([]domain.Anomaly, error) {
	if query.HungAfter <= 0 {
		query.HungAfter = DefaultHungAfter
	}
	if query.Lookback <= 0 {
		query.Lookback = DefaultLookback
	}

	now := uc.now()
	records, err := uc.store.ListBoundaries(ctx, now.Add(-query.Lookback))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load flow boundaries")
	}

	anomalies := []domain.Anomaly{}
	counts := map[domain.AnomalyKind]int{}

	ids, groups := domain.GroupByCorrelation(records)
	for _, id := range ids {
		f, err := domain.Reconstruct(id, groups[id], now, query.HungAfter)
		if err != nil {
			return nil, err
		}
		for _, anomaly := range f.Anomalies {
			// the start may predate the window
			if anomaly.Kind == domain.AnomalyMissingStart {
				continue
			}
			anomalies = append(anomalies, anomaly)
			counts[anomaly.Kind]++
		}
	}

	for _, kind := range []domain.AnomalyKind{
		domain.AnomalyHung,
		domain.AnomalyDuplicateStart,
		domain.AnomalyDuplicateEnd,
		domain.AnomalyConflictingOutcomes,
	} {
		telemetry.RecordGauge(ctx, "flow_anomalies", "Flow anomalies found by the last audit",
			float64(counts[kind]), attribute.String("kind", string(kind)))
	}

	if len(anomalies) > 0 {
		uc.logger.WarnContext(ctx, "flow anomalies found",
			"flows", len(ids),
			"anomalies", len(anomalies),
		)
	}

	return anomalies, nil
}
