// Package flow marks the boundaries of logical flows that span several independently
// running stages.
//
// A flow starts in one process and ends in another; nothing is remembered in between.
// Each boundary is a tagged event on the span of the unit of work that reached it, and an
// observer reconstructs the flow by grouping those events on the correlation-id tag.
package flow

import (
	"fmt"

	"github.com/draftea/order-flow/shared/models"
	"github.com/pkg/errors"
)

// Tag keys carried by boundary events and stage spans
const (
	CorrelationIDKey = "correlation-id"
	OutcomeKey       = "outcome"
)

var (
	ErrInvalidOutcome  = errors.New("invalid outcome")
	ErrInvalidBoundary = errors.New("invalid boundary")
)

// Name names a kind of flow
type Name string

// OrderProcessing is the flow of one order from intake to its terminal outcome
const OrderProcessing Name = "order_processing"

func (n Name) String() string {
	return string(n)
}

// Boundary marks where in the flow an event sits
type Boundary string

const (
	BoundaryStart Boundary = "start"
	BoundaryEnd   Boundary = "end"
)

// Outcome is the terminal result of a flow
type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Terminal reports whether the outcome may close a flow
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// Event is one flow boundary
type Event struct {
	FlowName      Name
	CorrelationID models.CorrelationID
	Boundary      Boundary
	Outcome       Outcome
}

// Validate checks that start events carry no outcome and end events carry a terminal one
func (e Event) Validate() error {
	switch e.Boundary {
	case BoundaryStart:
		if e.Outcome != OutcomeNone {
			return errors.Wrapf(ErrInvalidOutcome, "start event cannot carry outcome %q", e.Outcome)
		}
	case BoundaryEnd:
		if !e.Outcome.Terminal() {
			return errors.Wrapf(ErrInvalidOutcome, "end event requires success or failure, got %q", e.Outcome)
		}
	default:
		return errors.Wrapf(ErrInvalidBoundary, "%q", e.Boundary)
	}

	if e.FlowName == "" {
		return errors.New("flow name is required")
	}
	if e.CorrelationID == "" {
		return errors.Wrap(models.ErrInvalidCorrelationID, "correlation id is required")
	}

	return nil
}

// Name returns the span event name, flow.<flowName>.<boundary>
func (e Event) Name() string {
	return EventName(e.FlowName, e.Boundary)
}

// EventName builds a boundary event name
func EventName(flowName Name, boundary Boundary) string {
	return fmt.Sprintf("flow.%s.%s", flowName, boundary)
}
