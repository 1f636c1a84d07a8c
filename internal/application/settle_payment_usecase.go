package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"rinha-relay/internal/domain"
	"rinha-relay/internal/metrics"
	"time"
)

type Outcome int

const (
	OutcomeSettled Outcome = iota
	// OutcomeRequeued means both processors failed and the payment went back
	// on the queue.
	OutcomeRequeued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeRequeued:
		return "requeued"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// LedgerWriteError reports a payment the processor accepted but the ledger
// failed to record. Retrying the outbound call does not fix it.
type LedgerWriteError struct {
	Payment domain.Payment
	Err     error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("payment %s settled on %s but not recorded: %v",
		e.Payment.CorrelationId, e.Payment.Processor, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// RequeueError reports a payment both processors rejected that could not be
// pushed back on the queue. The caller still owns the payment.
type RequeueError struct {
	Payment domain.Payment
	Err     error
}

func (e *RequeueError) Error() string {
	return fmt.Sprintf("requeue payment %s: %v", e.Payment.CorrelationId, e.Err)
}

func (e *RequeueError) Unwrap() error { return e.Err }

// HealthMonitor is what settlement needs from the processor registry.
type HealthMonitor interface {
	HealthReader
	ProbeAllIfDue(ctx context.Context)
	MarkUnhealthy(p domain.Processor)
}

// SettlePaymentUseCase drives one settlement pass: probe if due, pick an order,
// try each processor once, record on success, requeue when both fail.
type SettlePaymentUseCase struct {
	Health   HealthMonitor
	Selector *FailoverSelector
	Gateway  domain.PaymentGateway
	Ledger   domain.PaymentLedger
	Queue    domain.PaymentQueue
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *SettlePaymentUseCase) Execute(ctx context.Context, payment domain.Payment) (Outcome, error) {
	s.Health.ProbeAllIfDue(ctx)
	first, second := s.Selector.Order(ctx)

	for _, candidate := range [...]domain.Processor{first, second} {
		attempt := payment
		attempt.RequestedAt = s.now()

		started := time.Now()
		err := s.Gateway.PostPayment(ctx, candidate, attempt)
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.SettlementDuration.WithLabelValues(string(candidate), result).Observe(time.Since(started).Seconds())

		if err != nil {
			s.logger().Debug("processor call failed",
				"processor", candidate, "correlationId", payment.CorrelationId, "error", err)
			metrics.ProcessorFailures.WithLabelValues(string(candidate)).Inc()
			s.Health.MarkUnhealthy(candidate)
			continue
		}

		attempt.Processor = candidate
		metrics.PaymentsSettled.WithLabelValues(string(candidate)).Inc()
		if err := s.Ledger.Record(ctx, attempt); err != nil {
			metrics.LedgerWriteFailures.Inc()
			s.logger().Error("payment settled but not recorded",
				"reason", "ledger_write", "processor", candidate,
				"correlationId", payment.CorrelationId, "error", err)
			return OutcomeSettled, &LedgerWriteError{Payment: attempt, Err: err}
		}
		return OutcomeSettled, nil
	}

	if err := s.Queue.Push(ctx, payment); err != nil {
		return OutcomeRequeued, &RequeueError{Payment: payment, Err: errors.Join(domain.ErrBothProcessorsFailed, err)}
	}
	metrics.PaymentsRequeued.Inc()
	s.logger().Info("both processors failed, payment requeued", "correlationId", payment.CorrelationId)
	return OutcomeRequeued, nil
}

func (s *SettlePaymentUseCase) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SettlePaymentUseCase) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
