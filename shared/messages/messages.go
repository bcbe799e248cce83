// Package messages holds the bit-exact payload contracts of the order processing channels.
//
//	payment-requests      correlationId|amount
//	fulfillment-requests  correlationId
//	order-failures        correlationId|reason
package messages

import (
	"strings"

	"github.com/draftea/order-flow/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Separator splits the fields of a payload
const Separator = "|"

// ReasonPaymentFailed is the failure reason published when a payment is declined
const ReasonPaymentFailed = "payment-failed"

// ErrMalformedPayload is returned when a payload does not follow its channel contract
var ErrMalformedPayload = errors.New("malformed payload")

// PaymentRequest asks the payment stage to charge an order
type PaymentRequest struct {
	CorrelationID models.CorrelationID
	Amount        decimal.Decimal
}

// Encode renders the payload as correlationId|amount
func (m PaymentRequest) Encode() string {
	return m.CorrelationID.String() + Separator + FormatAmount(m.Amount)
}

// ParsePaymentRequest parses a payment-requests payload
func ParsePaymentRequest(payload string) (PaymentRequest, error) {
	rawID, rawAmount, ok := strings.Cut(payload, Separator)
	if !ok {
		return PaymentRequest{}, errors.Wrapf(ErrMalformedPayload, "missing separator in %q", payload)
	}

	correlationID, err := models.ParseCorrelationID(rawID)
	if err != nil {
		return PaymentRequest{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return PaymentRequest{}, errors.Wrapf(ErrMalformedPayload, "invalid amount %q", rawAmount)
	}

	return PaymentRequest{
		CorrelationID: correlationID,
		Amount:        amount,
	}, nil
}

// FulfillmentRequest asks the fulfillment stage to complete a paid order
type FulfillmentRequest struct {
	CorrelationID models.CorrelationID
}

// Encode renders the payload as the bare correlation id
func (m FulfillmentRequest) Encode() string {
	return m.CorrelationID.String()
}

// ParseFulfillmentRequest parses a fulfillment-requests payload
func ParseFulfillmentRequest(payload string) (FulfillmentRequest, error) {
	correlationID, err := models.ParseCorrelationID(payload)
	if err != nil {
		return FulfillmentRequest{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	return FulfillmentRequest{CorrelationID: correlationID}, nil
}

// OrderFailure routes a failed order to the failure stage. Reason is a short
// machine-readable string and is not limited to payment failures.
type OrderFailure struct {
	CorrelationID models.CorrelationID
	Reason        string
}

// Encode renders the payload as correlationId|reason
func (m OrderFailure) Encode() string {
	return m.CorrelationID.String() + Separator + m.Reason
}

// ParseOrderFailure parses an order-failures payload
func ParseOrderFailure(payload string) (OrderFailure, error) {
	rawID, reason, ok := strings.Cut(payload, Separator)
	if !ok {
		return OrderFailure{}, errors.Wrapf(ErrMalformedPayload, "missing separator in %q", payload)
	}

	correlationID, err := models.ParseCorrelationID(rawID)
	if err != nil {
		return OrderFailure{}, errors.Wrap(ErrMalformedPayload, err.Error())
	}

	return OrderFailure{
		CorrelationID: correlationID,
		Reason:        reason,
	}, nil
}

// FormatAmount renders an amount keeping its scale, so "100.00" stays "100.00"
func FormatAmount(amount decimal.Decimal) string {
	if exp := amount.Exponent(); exp < 0 {
		return amount.StringFixed(-exp)
	}
	return amount.String()
}
