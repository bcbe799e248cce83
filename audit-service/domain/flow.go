package domain

import (
	"fmt"
	"time"

	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/models"
	"github.com/pkg/errors"
)

var ErrFlowNotFound = errors.New("flow not found")

// AnomalyKind classifies a flow whose trace record breaks the start/end contract
type AnomalyKind string

const (
	// AnomalyHung is a started flow without end after the hung threshold
	AnomalyHung AnomalyKind = "hung"
	// AnomalyDuplicateStart is more than one start for one correlation id
	AnomalyDuplicateStart AnomalyKind = "duplicate_start"
	// AnomalyDuplicateEnd is more than one end, usually a redelivered message
	AnomalyDuplicateEnd AnomalyKind = "duplicate_end"
	// AnomalyConflictingOutcomes is a flow that ended both with success and failure
	AnomalyConflictingOutcomes AnomalyKind = "conflicting_outcomes"
	// AnomalyMissingStart is an end without any recorded start
	AnomalyMissingStart AnomalyKind = "missing_start"
)

// Anomaly is one finding about a flow
type Anomaly struct {
	Kind          AnomalyKind          `json:"kind"`
	CorrelationID models.CorrelationID `json:"correlationId"`
	Detail        string               `json:"detail"`
}

// Flow is one order flow reconstructed from its trace records
type Flow struct {
	CorrelationID models.CorrelationID `json:"correlationId"`
	State         LifecycleState       `json:"state"`
	// Outcome comes from the first end event; later ones are reported as anomalies
	Outcome   flow.Outcome  `json:"outcome"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
	Starts    int           `json:"starts"`
	Ends      int           `json:"ends"`
	Anomalies []Anomaly     `json:"anomalies"`
	Records   []flow.Record `json:"records"`
}

// Open reports whether the flow started and has not ended
func (f *Flow) Open() bool {
	return f.Starts > 0 && f.Ends == 0
}

// Reconstruct rebuilds a flow from its records, which must be ordered oldest first.
// A start older than hungAfter without any end makes the flow hung at now.
func Reconstruct(correlationID models.CorrelationID, records []flow.Record, now time.Time, hungAfter time.Duration) (*Flow, error) {
	if len(records) == 0 {
		return nil, errors.Wrapf(ErrFlowNotFound, "%s", correlationID)
	}

	f := &Flow{
		CorrelationID: correlationID,
		Outcome:       flow.OutcomeNone,
		Records:       records,
	}

	outcomes := map[flow.Outcome]int{}
	for i := range records {
		record := records[i]
		if record.Kind != flow.RecordKindBoundary || record.FlowName != flow.OrderProcessing {
			continue
		}

		switch record.Boundary {
		case flow.BoundaryStart:
			f.Starts++
			if f.StartedAt == nil {
				f.StartedAt = &records[i].RecordedAt
			}
		case flow.BoundaryEnd:
			f.Ends++
			outcomes[record.Outcome]++
			if f.EndedAt == nil {
				f.EndedAt = &records[i].RecordedAt
				f.Outcome = record.Outcome
			}
		}
	}

	f.State = replay(records)
	f.Anomalies = f.detect(outcomes, now, hungAfter)

	return f, nil
}

func (f *Flow) detect(outcomes map[flow.Outcome]int, now time.Time, hungAfter time.Duration) []Anomaly {
	anomalies := []Anomaly{}
	add := func(kind AnomalyKind, detail string) {
		anomalies = append(anomalies, Anomaly{Kind: kind, CorrelationID: f.CorrelationID, Detail: detail})
	}

	if f.Open() && now.Sub(*f.StartedAt) > hungAfter {
		add(AnomalyHung, fmt.Sprintf("started %s ago without end", now.Sub(*f.StartedAt).Truncate(time.Millisecond)))
	}
	if f.Starts > 1 {
		add(AnomalyDuplicateStart, fmt.Sprintf("%d start events", f.Starts))
	}
	if f.Ends > 1 {
		add(AnomalyDuplicateEnd, fmt.Sprintf("%d end events", f.Ends))
	}
	if outcomes[flow.OutcomeSuccess] > 0 && outcomes[flow.OutcomeFailure] > 0 {
		add(AnomalyConflictingOutcomes, fmt.Sprintf("first outcome %s, %d success and %d failure ends",
			f.Outcome, outcomes[flow.OutcomeSuccess], outcomes[flow.OutcomeFailure]))
	}
	if f.Ends > 0 && f.Starts == 0 {
		add(AnomalyMissingStart, "end recorded without start")
	}

	return anomalies
}

// GroupByCorrelation splits records by correlation id keeping their order.
// The returned ids follow the first appearance of each flow.
func GroupByCorrelation(records []flow.Record) ([]models.CorrelationID, map[models.CorrelationID][]flow.Record) {
	var ids []models.CorrelationID
	groups := map[models.CorrelationID][]flow.Record{}
	for _, record := range records {
		if _, ok := groups[record.CorrelationID]; !ok {
			ids = append(ids, record.CorrelationID)
		}
		groups[record.CorrelationID] = append(groups[record.CorrelationID], record)
	}
	return ids, groups
}
