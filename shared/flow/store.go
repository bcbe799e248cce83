package flow

import (
	"context"
	"time"

	"github.com/draftea/order-flow/shared/models"
)

// RecordStore keeps exported flow records for out-of-band auditing
type RecordStore interface {
	SaveRecords(ctx context.Context, records []Record) error
	// ListByCorrelation returns every record of one flow, oldest first
	ListByCorrelation(ctx context.Context, correlationID models.CorrelationID) ([]Record, error)
	// ListBoundaries returns boundary records recorded at or after since, oldest first
	ListBoundaries(ctx context.Context, since time.Time) ([]Record, error)
}
