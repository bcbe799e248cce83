package domain

import (
	"github.com/draftea/order-flow/shared/flow"
)

// LifecycleState is how far an order got through the pipeline, as seen in its trace records
type LifecycleState string

const (
	StateUnknown          LifecycleState = "unknown"
	StateCreated          LifecycleState = "created"
	StatePaymentPending   LifecycleState = "payment_pending"
	StatePaymentSucceeded LifecycleState = "payment_succeeded"
	StatePaymentFailed    LifecycleState = "payment_failed"
	StateFulfilling       LifecycleState = "fulfilling"
	StateCompleted        LifecycleState = "completed"
	StateFailed           LifecycleState = "failed"
)

// Stage span names emitted by the pipeline
const (
	StageCreateOrder        = "create-order"
	StageProcessPayment     = "process-payment"
	StageFulfillOrder       = "fulfill-order"
	StageHandleOrderFailure = "handle-order-failure"
)

// Terminal reports whether no further transition is expected
func (s LifecycleState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var transitions = map[LifecycleState][]LifecycleState{
	StateUnknown:          {StateCreated, StatePaymentPending, StatePaymentSucceeded, StatePaymentFailed, StateFulfilling, StateCompleted, StateFailed},
	StateCreated:          {StatePaymentPending},
	StatePaymentPending:   {StatePaymentSucceeded, StatePaymentFailed},
	StatePaymentSucceeded: {StateFulfilling, StateCompleted},
	StatePaymentFailed:    {StateFailed},
	StateFulfilling:       {StateCompleted},
}

// CanTransition reports whether the pipeline can move from one state to the other
func (s LifecycleState) CanTransition(to LifecycleState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// stateOf maps one record to the state it proves the order reached
func stateOf(record flow.Record) (LifecycleState, bool) {
	switch record.Kind {
	case flow.RecordKindBoundary:
		switch {
		case record.Boundary == flow.BoundaryStart:
			return StateCreated, true
		case record.Outcome == flow.OutcomeSuccess:
			return StateCompleted, true
		case record.Outcome == flow.OutcomeFailure:
			return StateFailed, true
		}
	case flow.RecordKindStage:
		switch record.Name {
		case StageCreateOrder:
			return StatePaymentPending, true
		case StageProcessPayment:
			switch record.Detail {
			case "approved":
				return StatePaymentSucceeded, true
			case "declined":
				return StatePaymentFailed, true
			}
			return StatePaymentPending, true
		case StageFulfillOrder:
			return StateFulfilling, true
		case StageHandleOrderFailure:
			return StatePaymentFailed, true
		}
	}
	return "", false
}

// replay walks the records in order and only ever moves the state forward, so records
// exported out of order are tolerated.
func replay(records []flow.Record) LifecycleState {
	state := StateUnknown
	for _, record := range records {
		next, ok := stateOf(record)
		if ok && reachable(state, next) {
			state = next
		}
	}
	return state
}

// reachable reports whether to lies ahead of from through any chain of transitions
func reachable(from, to LifecycleState) bool {
	seen := map[LifecycleState]bool{}
	queue := []LifecycleState{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range transitions[current] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
