package domain

import (
	"testing"
	"time"

	"github.com/draftea/order-flow/shared/flow"
	"github.com/draftea/order-flow/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const id = models.CorrelationID("order-1")

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func start(at time.Duration) flow.Record {
	return flow.Record{CorrelationID: id, Kind: flow.RecordKindBoundary, FlowName: flow.OrderProcessing,
		Name: "flow.order_processing.start", Boundary: flow.BoundaryStart, Outcome: flow.OutcomeNone, RecordedAt: t0.Add(at)}
}

func end(at time.Duration, outcome flow.Outcome) flow.Record {
	return flow.Record{CorrelationID: id, Kind: flow.RecordKindBoundary, FlowName: flow.OrderProcessing,
		Name: "flow.order_processing.end", Boundary: flow.BoundaryEnd, Outcome: outcome, RecordedAt: t0.Add(at)}
}

func stage(at time.Duration, name, detail string) flow.Record {
	return flow.Record{CorrelationID: id, Kind: flow.RecordKindStage, Name: name, Detail: detail, RecordedAt: t0.Add(at)}
}

func kinds(anomalies []Anomaly) []AnomalyKind {
	out := []AnomalyKind{}
	for _, a := range anomalies {
		out = append(out, a.Kind)
	}
	return out
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name              string
		records           []flow.Record
		now               time.Duration
		expectedState     LifecycleState
		expectedOutcome   flow.Outcome
		expectedAnomalies []AnomalyKind
	}{
		{
			name: "completed flow",
			records: []flow.Record{
				stage(0, StageCreateOrder, ""), start(time.Millisecond),
				stage(200*time.Millisecond, StageProcessPayment, "approved"),
				stage(400*time.Millisecond, StageFulfillOrder, ""), end(550*time.Millisecond, flow.OutcomeSuccess),
			},
			now:               time.Minute,
			expectedState:     StateCompleted,
			expectedOutcome:   flow.OutcomeSuccess,
			expectedAnomalies: []AnomalyKind{},
		},
		{
			name: "failed flow",
			records: []flow.Record{
				stage(0, StageCreateOrder, ""), start(time.Millisecond),
				stage(200*time.Millisecond, StageProcessPayment, "declined"),
				stage(400*time.Millisecond, StageHandleOrderFailure, "payment-failed"), end(450*time.Millisecond, flow.OutcomeFailure),
			},
			now:               time.Minute,
			expectedState:     StateFailed,
			expectedOutcome:   flow.OutcomeFailure,
			expectedAnomalies: []AnomalyKind{},
		},
		{
			name:              "recent open flow is not hung",
			records:           []flow.Record{stage(0, StageCreateOrder, ""), start(time.Millisecond)},
			now:               10 * time.Second,
			expectedState:     StatePaymentPending,
			expectedOutcome:   flow.OutcomeNone,
			expectedAnomalies: []AnomalyKind{},
		},
		{
			name: "open flow past threshold is hung",
			records: []flow.Record{
				stage(0, StageCreateOrder, ""), start(time.Millisecond),
				stage(200*time.Millisecond, StageProcessPayment, "approved"),
			},
			now:               time.Minute,
			expectedState:     StatePaymentSucceeded,
			expectedOutcome:   flow.OutcomeNone,
			expectedAnomalies: []AnomalyKind{AnomalyHung},
		},
		{
			name: "redelivered fulfillment ends twice",
			records: []flow.Record{
				start(0), end(time.Second, flow.OutcomeSuccess), end(2*time.Second, flow.OutcomeSuccess),
			},
			now:               time.Minute,
			expectedState:     StateCompleted,
			expectedOutcome:   flow.OutcomeSuccess,
			expectedAnomalies: []AnomalyKind{AnomalyDuplicateEnd},
		},
		{
			name: "first end decides the outcome when they conflict",
			records: []flow.Record{
				start(0), end(time.Second, flow.OutcomeFailure), end(2*time.Second, flow.OutcomeSuccess),
			},
			now:               time.Minute,
			expectedState:     StateFailed,
			expectedOutcome:   flow.OutcomeFailure,
			expectedAnomalies: []AnomalyKind{AnomalyDuplicateEnd, AnomalyConflictingOutcomes},
		},
		{
			name:              "duplicate start",
			records:           []flow.Record{start(0), start(time.Second), end(2*time.Second, flow.OutcomeSuccess)},
			now:               time.Minute,
			expectedState:     StateCompleted,
			expectedOutcome:   flow.OutcomeSuccess,
			expectedAnomalies: []AnomalyKind{AnomalyDuplicateStart},
		},
		{
			name:              "end without start",
			records:           []flow.Record{end(0, flow.OutcomeSuccess)},
			now:               time.Minute,
			expectedState:     StateCompleted,
			expectedOutcome:   flow.OutcomeSuccess,
			expectedAnomalies: []AnomalyKind{AnomalyMissingStart},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Reconstruct(id, tt.records, t0.Add(tt.now), 30*time.Second)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedState, f.State)
			assert.Equal(t, tt.expectedOutcome, f.Outcome)
			assert.Equal(t, tt.expectedAnomalies, kinds(f.Anomalies))
		})
	}
}

func TestReconstruct_NoRecords(t *testing.T) {
	_, err := Reconstruct(id, nil, t0, time.Second)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestReplay_NeverMovesBackwards(t *testing.T) {
	records := []flow.Record{
		end(0, flow.OutcomeSuccess),
		stage(time.Second, StageFulfillOrder, ""),
		stage(2*time.Second, StageProcessPayment, "approved"),
	}
	assert.Equal(t, StateCompleted, replay(records))
}

func TestLifecycleState_CanTransition(t *testing.T) {
	assert.True(t, StatePaymentPending.CanTransition(StatePaymentFailed))
	assert.True(t, StatePaymentFailed.CanTransition(StateFailed))
	assert.False(t, StatePaymentFailed.CanTransition(StateCompleted))
	assert.False(t, StateCompleted.CanTransition(StateFailed))
	assert.True(t, StateFailed.Terminal())
}

func TestGroupByCorrelation(t *testing.T) {
	a := start(0)
	b := start(time.Second)
	b.CorrelationID = "order-2"
	c := end(2*time.Second, flow.OutcomeSuccess)

	ids, groups := GroupByCorrelation([]flow.Record{a, b, c})

	assert.Equal(t, []models.CorrelationID{"order-1", "order-2"}, ids)
	assert.Len(t, groups["order-1"], 2)
	assert.Len(t, groups["order-2"], 1)
}
