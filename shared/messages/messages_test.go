package messages

import (
	"testing"

	"github.com/draftea/order-flow/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const correlationID = models.CorrelationID("order-550e8400-e29b-41d4-a716-446655440000")

func TestPaymentRequest_Encode(t *testing.T) {
	msg := PaymentRequest{
		CorrelationID: correlationID,
		Amount:        decimal.RequireFromString("100.00"),
	}

	assert.Equal(t, "order-550e8400-e29b-41d4-a716-446655440000|100.00", msg.Encode())
}

func TestPaymentRequest_AmountRoundTrip(t *testing.T) {
	amounts := []string{"100.00", "0.01", "42", "12345678901234567890.123456789", "7.50", "0.000001"}

	for _, raw := range amounts {
		t.Run(raw, func(t *testing.T) {
			original := decimal.RequireFromString(raw)

			parsed, err := ParsePaymentRequest(PaymentRequest{CorrelationID: correlationID, Amount: original}.Encode())

			require.NoError(t, err)
			assert.Equal(t, correlationID, parsed.CorrelationID)
			assert.True(t, original.Equal(parsed.Amount), "expected %s, got %s", original, parsed.Amount)
			assert.Equal(t, raw, FormatAmount(parsed.Amount))
		})
	}
}

func TestParsePaymentRequest_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "no separator", payload: "order-1"},
		{name: "empty payload", payload: ""},
		{name: "empty correlation id", payload: "|100.00"},
		{name: "empty amount", payload: "order-1|"},
		{name: "non numeric amount", payload: "order-1|one hundred"},
		{name: "extra field", payload: "order-1|100.00|extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePaymentRequest(tt.payload)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPayload))
		})
	}
}

func TestFulfillmentRequest(t *testing.T) {
	msg := FulfillmentRequest{CorrelationID: correlationID}
	assert.Equal(t, correlationID.String(), msg.Encode())

	parsed, err := ParseFulfillmentRequest(msg.Encode())
	require.NoError(t, err)
	assert.Equal(t, correlationID, parsed.CorrelationID)

	_, err = ParseFulfillmentRequest("")
	assert.True(t, errors.Is(err, ErrMalformedPayload))

	_, err = ParseFulfillmentRequest("order-1|payment-failed")
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestOrderFailure(t *testing.T) {
	msg := OrderFailure{CorrelationID: correlationID, Reason: ReasonPaymentFailed}
	assert.Equal(t, correlationID.String()+"|payment-failed", msg.Encode())

	parsed, err := ParseOrderFailure(msg.Encode())
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestParseOrderFailure_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing separator", payload: "order-1"},
		{name: "empty correlation id", payload: "|payment-failed"},
		{name: "empty payload", payload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderFailure(tt.payload)
			assert.True(t, errors.Is(err, ErrMalformedPayload))
		})
	}
}

func TestParseOrderFailure_GenericReason(t *testing.T) {
	parsed, err := ParseOrderFailure("order-1|inventory-unavailable")
	require.NoError(t, err)
	assert.Equal(t, "inventory-unavailable", parsed.Reason)
}
