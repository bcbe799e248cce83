package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCorrelationID(t *testing.T) {
	orderID := GenerateUUID()

	correlationID := NewCorrelationID(orderID)

	assert.Equal(t, "order-"+orderID.String(), correlationID.String())

	got, ok := correlationID.OrderID()
	require.True(t, ok)
	assert.Equal(t, orderID, got)
}

func TestNewCorrelationID_NeverReused(t *testing.T) {
	seen := make(map[CorrelationID]struct{})
	for i := 0; i < 1000; i++ {
		id := NewCorrelationID(GenerateUUID())
		_, dup := seen[id]
		require.False(t, dup, "correlation id %s minted twice", id)
		seen[id] = struct{}{}
	}
}

func TestParseCorrelationID(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedError bool
	}{
		{name: "minted id", input: "order-550e8400-e29b-41d4-a716-446655440000"},
		{name: "opaque id", input: "anything-goes"},
		{name: "empty", input: "", expectedError: true},
		{name: "whitespace only", input: "   ", expectedError: true},
		{name: "contains separator", input: "order-1|100.00", expectedError: true},
		{name: "contains newline", input: "order-1\n", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseCorrelationID(tt.input)
			if tt.expectedError {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidCorrelationID))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestCorrelationID_OrderIDWithoutPrefix(t *testing.T) {
	_, ok := CorrelationID("payment-123").OrderID()
	assert.False(t, ok)
}
