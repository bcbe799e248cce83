package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderRequest_Validate(t *testing.T) {
	tests := []struct {
		name          string
		request       OrderRequest
		expectedError error
	}{
		{
			name:    "valid request",
			request: OrderRequest{Amount: decimal.RequireFromString("100.00"), ProductID: "sku-1"},
		},
		{
			name:    "smallest positive amount",
			request: OrderRequest{Amount: decimal.RequireFromString("0.01"), ProductID: "sku-1"},
		},
		{
			name:          "zero amount",
			request:       OrderRequest{Amount: decimal.Zero, ProductID: "sku-1"},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "negative amount",
			request:       OrderRequest{Amount: decimal.NewFromInt(-5), ProductID: "sku-1"},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "empty product ID",
			request:       OrderRequest{Amount: decimal.NewFromInt(5)},
			expectedError: ErrMissingProductID,
		},
		{
			name:          "blank product ID",
			request:       OrderRequest{Amount: decimal.NewFromInt(5), ProductID: "   "},
			expectedError: ErrMissingProductID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.expectedError == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expectedError, err)
			assert.True(t, errors.Is(err, ErrInvalidOrder))
		})
	}
}
