package infrastructure

import (
	"context"
	"time"

	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ flow.RecordStore = (*PostgresFlowStore)(nil)

// FlowRecordsSchema creates the flow_records table
const FlowRecordsSchema = `
CREATE TABLE IF NOT EXISTS flow_records (
	id             BIGSERIAL PRIMARY KEY,
	correlation_id TEXT        NOT NULL,
	kind           TEXT        NOT NULL,
	flow_name      TEXT        NOT NULL DEFAULT '',
	name           TEXT        NOT NULL,
	boundary       TEXT        NOT NULL DEFAULT '',
	outcome        TEXT        NOT NULL DEFAULT '',
	detail         TEXT        NOT NULL DEFAULT '',
	service        TEXT        NOT NULL DEFAULT '',
	trace_id       TEXT        NOT NULL DEFAULT '',
	span_id        TEXT        NOT NULL DEFAULT '',
	recorded_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS flow_records_correlation_idx ON flow_records (correlation_id, recorded_at);
CREATE INDEX IF NOT EXISTS flow_records_boundary_idx ON flow_records (kind, recorded_at);
`

// PostgresFlowStore implements flow.RecordStore using PostgreSQL
type PostgresFlowStore struct {
	db *sqlx.DB
}

// NewPostgresFlowStore creates a new PostgresFlowStore
func NewPostgresFlowStore(db *sqlx.DB) *PostgresFlowStore {
	return &PostgresFlowStore{db: db}
}

// postgresRecord represents a flow record in database
type postgresRecord struct {
	CorrelationID string    `db:"correlation_id"`
	Kind          string    `db:"kind"`
	FlowName      string    `db:"flow_name"`
	Name          string    `db:"name"`
	Boundary      string    `db:"boundary"`
	Outcome       string    `db:"outcome"`
	Detail        string    `db:"detail"`
	Service       string    `db:"service"`
	TraceID       string    `db:"trace_id"`
	SpanID        string    `db:"span_id"`
	RecordedAt    time.Time `db:"recorded_at"`
}

// EnsureSchema creates the table and indexes when missing
func (s *PostgresFlowStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, FlowRecordsSchema); err != nil {
		return errors.Wrap(err, "failed to create flow_records schema")
	}
	return nil
}

// SaveRecords inserts all records in one transaction
func (s *PostgresFlowStore) SaveRecords(ctx context.Context, records []flow.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO flow_records (
			correlation_id, kind, flow_name, name, boundary, outcome,
			detail, service, trace_id, span_id, recorded_at
		) VALUES (
			:correlation_id, :kind, :flow_name, :name, :boundary, :outcome,
			:detail, :service, :trace_id, :span_id, :recorded_at
		)`

	for _, record := range records {
		if _, err := tx.NamedExecContext(ctx, query, toPostgresRecord(record)); err != nil {
			return errors.Wrap(err, "failed to insert flow record")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit flow records")
	}
	return nil
}

// ListByCorrelation retrieves every record of one flow
func (s *PostgresFlowStore) ListByCorrelation(ctx context.Context, correlationID models.CorrelationID) ([]flow.Record, error) {
	query := `
		SELECT correlation_id, kind, flow_name, name, boundary, outcome,
			   detail, service, trace_id, span_id, recorded_at
		FROM flow_records
		WHERE correlation_id = $1
		ORDER BY recorded_at ASC, id ASC`

	var rows []postgresRecord
	if err := s.db.SelectContext(ctx, &rows, query, correlationID.String()); err != nil {
		return nil, errors.Wrap(err, "failed to get flow records")
	}

	return toDomainRecords(rows), nil
}

// ListBoundaries retrieves boundary records recorded at or after since
func (s *PostgresFlowStore) ListBoundaries(ctx context.Context, since time.Time) ([]flow.Record, error) {
	query := `
		SELECT correlation_id, kind, flow_name, name, boundary, outcome,
			   detail, service, trace_id, span_id, recorded_at
		FROM flow_records
		WHERE kind = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC, id ASC`

	var rows []postgresRecord
	if err := s.db.SelectContext(ctx, &rows, query, string(flow.RecordKindBoundary), since); err != nil {
		return nil, errors.Wrap(err, "failed to get boundary records")
	}

	return toDomainRecords(rows), nil
}

func toPostgresRecord(r flow.Record) postgresRecord {
	return postgresRecord{
		CorrelationID: r.CorrelationID.String(),
		Kind:          string(r.Kind),
		FlowName:      string(r.FlowName),
		Name:          r.Name,
		Boundary:      string(r.Boundary),
		Outcome:       string(r.Outcome),
		Detail:        r.Detail,
		Service:       r.Service,
		TraceID:       r.TraceID,
		SpanID:        r.SpanID,
		RecordedAt:    r.RecordedAt.UTC(),
	}
}

func toDomainRecords(rows []postgresRecord) []flow.Record {
	records := make([]flow.Record, len(rows))
	for i, row := range rows {
		records[i] = flow.Record{
			CorrelationID: models.CorrelationID(row.CorrelationID),
			Kind:          flow.RecordKind(row.Kind),
			FlowName:      flow.Name(row.FlowName),
			Name:          row.Name,
			Boundary:      flow.Boundary(row.Boundary),
			Outcome:       flow.Outcome(row.Outcome),
			Detail:        row.Detail,
			Service:       row.Service,
			TraceID:       row.TraceID,
			SpanID:        row.SpanID,
			RecordedAt:    row.RecordedAt,
		}
	}
	return records
}
