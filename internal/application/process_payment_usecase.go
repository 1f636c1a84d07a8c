package application

import (
	"context"
	"fmt"
	"rinha-relay/internal/domain"
	"rinha-relay/internal/metrics"
)

// ProcessPaymentUseCase is the API-facing side of the pipeline: accept and
// queue, or purge the ledger.
type ProcessPaymentUseCase struct {
	Queue  domain.PaymentQueue
	Ledger domain.PaymentLedger
}

func (s *ProcessPaymentUseCase) Execute(ctx context.Context, payment domain.Payment) error {
	if err := s.Queue.Push(ctx, payment); err != nil {
		return fmt.Errorf("enqueue payment: %w", err)
	}
	metrics.PaymentsEnqueued.Inc()
	return nil
}

// PurgePayments clears the ledger. Queued and in-flight payments are untouched,
// and a settlement recorded concurrently may survive.
func (s *ProcessPaymentUseCase) PurgePayments(ctx context.Context) error {
	return s.Ledger.Purge(ctx)
}
