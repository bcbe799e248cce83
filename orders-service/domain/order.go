package domain

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// StatusProcessing is the only status intake ever reports: the outcome is decided downstream
const StatusProcessing = "Processing"

var (
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidAmount    = errors.Wrap(ErrInvalidOrder, "amount must be positive")
	ErrMissingProductID = errors.Wrap(ErrInvalidOrder, "product ID is required")
)

// OrderRequest is what a caller submits to start an order flow
type OrderRequest struct {
	Amount    decimal.Decimal
	ProductID string
}

// Validate checks the request before anything is minted or published
func (r OrderRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.ProductID) == "" {
		return ErrMissingProductID
	}
	return nil
}
