package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrBothProcessorsFailed = errors.New("both payment processors failed")
)

// PaymentQueue is a durable FIFO of pending payments.
type PaymentQueue interface {
	Push(ctx context.Context, payment Payment) error
	// BlockingPop waits up to timeout for the head of the queue. ok is false
	// when the timeout elapsed with nothing to pop.
	BlockingPop(ctx context.Context, timeout time.Duration) (payment Payment, ok bool, err error)
}

// PaymentLedger stores settled payments indexed by settlement time.
type PaymentLedger interface {
	// Record writes the entry and its index score as one unit.
	Record(ctx context.Context, payment Payment) error
	// Range returns entries whose settlement time lies in [from, to].
	Range(ctx context.Context, from, to time.Time) ([]LedgerEntry, error)
	Purge(ctx context.Context) error
}

// PaymentGateway performs the outbound settlement call.
type PaymentGateway interface {
	PostPayment(ctx context.Context, processor Processor, payment Payment) error
}

// HealthProber reports whether a processor's health endpoint says it is up.
type HealthProber interface {
	CheckHealth(ctx context.Context, processor Processor) (bool, error)
}
