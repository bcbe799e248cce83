package infrastructure

import (
	"context"

	"github.com/draftea/order-flow/shared/config"
	"github.com/draftea/order-flow/shared/flow"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// NewFlowStore opens the store selected by cfg.FlowStore.Driver.
// The returned close function is never nil. The store is nil for the "none" driver.
func NewFlowStore(ctx context.Context, cfg *config.Config) (flow.RecordStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.FlowStore.Driver {
	case config.FlowStoreNone, "":
		return nil, noop, nil
	case config.FlowStoreMemory:
		return NewMemoryFlowStore(), noop, nil
	case config.FlowStorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, noop, errors.Wrap(err, "failed to connect to database")
		}

		store := NewPostgresFlowStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil
	default:
		return nil, noop, errors.Errorf("unknown flow store driver %q", cfg.FlowStore.Driver)
	}
}
