package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/models"
)

var _ flow.RecordStore = (*MemoryFlowStore)(nil)

// MemoryFlowStore keeps flow records in process. Used by the local stack and tests.
type MemoryFlowStore struct {
	mu      sync.RWMutex
	records []flow.Record
}

func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{}
}

func (s *MemoryFlowStore) SaveRecords(_ context.Context, records []flow.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *MemoryFlowStore) ListByCorrelation(_ context.Context, correlationID models.CorrelationID) ([]flow.Record, error) {
	return s.filter(func(r flow.Record) bool {
		return r.CorrelationID == correlationID
	}), nil
}

func (s *MemoryFlowStore) ListBoundaries(_ context.Context, since time.Time) ([]flow.Record, error) {
	return s.filter(func(r flow.Record) bool {
		return r.Kind == flow.RecordKindBoundary && !r.RecordedAt.Before(since)
	}), nil
}

func (s *MemoryFlowStore) filter(keep func(flow.Record) bool) []flow.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []flow.Record
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}
