package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// correlationPrefix is prepended to the order id when minting a correlation id
const correlationPrefix = "order-"

// ErrInvalidCorrelationID is returned when a correlation id cannot travel on the bus
var ErrInvalidCorrelationID = errors.New("invalid correlation id")

// ID represents a unique identifier
type ID string

// GenerateUUID creates a new UUID
func GenerateUUID() ID {
	return ID(uuid.New().String())
}

// String returns string representation
func (id ID) String() string {
	return string(id)
}

// CorrelationID identifies one logical order flow from intake to its terminal outcome.
// It is minted once and carried verbatim through every payload and trace tag.
type CorrelationID string

// NewCorrelationID mints a correlation id for the given order id
func NewCorrelationID(orderID ID) CorrelationID {
	return CorrelationID(correlationPrefix + orderID.String())
}

// ParseCorrelationID validates a correlation id read from a payload
func ParseCorrelationID(s string) (CorrelationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.Wrap(ErrInvalidCorrelationID, "correlation id is empty")
	}
	if strings.ContainsAny(s, "|\r\n") {
		return "", errors.Wrapf(ErrInvalidCorrelationID, "correlation id %q contains a reserved character", s)
	}
	return CorrelationID(s), nil
}

// OrderID returns the order id part of a correlation id minted by NewCorrelationID
func (c CorrelationID) OrderID() (ID, bool) {
	orderID, ok := strings.CutPrefix(string(c), correlationPrefix)
	if !ok {
		return "", false
	}
	return ID(orderID), true
}

// String returns string representation
func (c CorrelationID) String() string {
	return string(c)
}
