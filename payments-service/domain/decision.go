package domain

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultSuccessRate is the share of payments approved by the simulated gateway
const DefaultSuccessRate = 0.9

var ErrInvalidSuccessRate = errors.New("success rate must be within [0, 1]")

// Decision is the result of a payment attempt
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDeclined Decision = "declined"
)

func (d Decision) String() string {
	return string(d)
}

// Approved reports whether the payment went through
func (d Decision) Approved() bool {
	return d == DecisionApproved
}

// Decider decides the outcome of one payment attempt
type Decider interface {
	Decide(ctx context.Context, amount decimal.Decimal) Decision
}

// RandomDecider approves each payment independently with a fixed probability.
// The amount does not influence the draw.
type RandomDecider struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	successRate float64
}

// NewRandomDecider creates a decider seeded from the clock
func NewRandomDecider(successRate float64) (*RandomDecider, error) {
	return NewSeededRandomDecider(successRate, time.Now().UnixNano())
}

// NewSeededRandomDecider creates a decider with a reproducible sequence of draws
func NewSeededRandomDecider(successRate float64, seed int64) (*RandomDecider, error) {
	if successRate < 0 || successRate > 1 {
		return nil, errors.Wrapf(ErrInvalidSuccessRate, "got %v", successRate)
	}
	return &RandomDecider{
		rnd:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}, nil
}

// Decide draws once per call
func (d *RandomDecider) Decide(_ context.Context, _ decimal.Decimal) Decision {
	d.mu.Lock()
	draw := d.rnd.Float64()
	d.mu.Unlock()

	if draw < d.successRate {
		return DecisionApproved
	}
	return DecisionDeclined
}

// SuccessRate returns the configured approval probability
func (d *RandomDecider) SuccessRate() float64 {
	return d.successRate
}
