// Package payment simulates a card processor for the demo catalog.
package payment

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/jewelrycommerce/pkg/errors"
)

// Defaults match a slow, mostly reliable processor.
const (
	DefaultDelay       = 1500 * time.Millisecond
	DefaultFailureRate = 0.05
	StatusPaid         = "paid"
)

// FailureMessage is returned to the shopper when a charge is declined.
const FailureMessage = "Payment failed. Please try again."

// Charge is a payment request.
type Charge struct {
	Amount  int64
	OrderID string
}

// Result is a successful charge.
type Result struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
}

// Simulator waits for Delay and then declines a FailureRate share of charges.
type Simulator struct {
	delay       time.Duration
	failureRate float64
	random      func() float64
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRandom replaces the source of the decline roll, a value in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(s *Simulator) { s.random = fn }
}

// WithSleep replaces the processing wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Simulator) { s.sleep = fn }
}

// NewSimulator creates a simulator. Negative values are clamped to zero and
// a failure rate above 1 declines everything.
func NewSimulator(delay time.Duration, failureRate float64, opts ...Option) *Simulator {
	s := &Simulator{
		delay:       max(delay, 0),
		failureRate: min(max(failureRate, 0), 1),
		random:      rand.Float64, // #nosec G404 -- simulated outcome only
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one charge. A decline is apperrors.ErrPaymentFailed; a
// canceled context aborts the wait.
func (s *Simulator) Process(ctx context.Context, c Charge) (*Result, error) {
	if err := s.sleep(ctx, s.delay); err != nil {
		return nil, err
	}
	if s.random() < s.failureRate {
		return nil, apperrors.PaymentFailed(FailureMessage)
	}
	return &Result{
		Success:       true,
		TransactionID: "txn_" + uuid.NewString(),
		Amount:        c.Amount,
		Status:        StatusPaid,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
