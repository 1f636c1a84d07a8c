package worker

import (
	"context"
	"errors"
	"log/slog"
	"rinha-relay/internal/application"
	"rinha-relay/internal/domain"
	"rinha-relay/internal/metrics"
	"sync"
	"time"
)

// Settler settles one payment.
type Settler interface {
	Execute(ctx context.Context, payment domain.Payment) (application.Outcome, error)
}

// Pool runs Size slots, each popping a payment and settling it inline, so at
// most Size settlements are in flight.
type Pool struct {
	Queue        domain.PaymentQueue
	Settler      Settler
	Size         int
	PopTimeout   time.Duration
	ErrorBackoff time.Duration
	Logger       *slog.Logger
}

// Run blocks until ctx is cancelled and every slot has finished its current
// settlement. Payments still queued stay queued.
func (p *Pool) Run(ctx context.Context) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker")

	logger.Info("starting workers", "count", p.Size)
	var wg sync.WaitGroup
	for i := 1; i <= p.Size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.slot(ctx, logger.With("worker", workerID))
		}(i)
	}
	wg.Wait()
	logger.Info("all workers stopped")
}

func (p *Pool) slot(ctx context.Context, logger *slog.Logger) {
	// Shutdown is only observed between iterations; pops and settlements
	// always run to completion.
	work := context.WithoutCancel(ctx)

	for ctx.Err() == nil {
		payment, ok, err := p.Queue.BlockingPop(work, p.PopTimeout)
		if err != nil {
			logger.Warn("queue pop failed", "error", err)
			p.backoff(ctx)
			continue
		}
		if !ok {
			continue
		}

		metrics.WorkersBusy.Inc()
		outcome, err := p.Settler.Execute(work, payment)
		metrics.WorkersBusy.Dec()

		if err != nil {
			var lwe *application.LedgerWriteError
			if errors.As(err, &lwe) {
				// already logged with reason=ledger_write
				continue
			}
			var rqe *application.RequeueError
			if errors.As(err, &rqe) {
				p.requeue(ctx, work, logger, rqe)
				continue
			}
			logger.Warn("settlement failed", "outcome", outcome, "correlationId", payment.CorrelationId, "error", err)
			p.backoff(ctx)
		}
	}
}

// requeue keeps pushing a payment the settler could not put back until the
// queue accepts it or the pool is shut down.
func (p *Pool) requeue(ctx, work context.Context, logger *slog.Logger, rqe *application.RequeueError) {
	payment := rqe.Payment
	logger.Warn("requeue failed, retrying", "correlationId", payment.CorrelationId, "error", rqe.Err)
	for {
		p.backoff(ctx)
		if ctx.Err() != nil {
			logger.Error("payment dropped on shutdown: requeue failed",
				"correlationId", payment.CorrelationId, "amount", payment.Amount.String(), "error", rqe.Err)
			return
		}
		err := p.Queue.Push(work, payment)
		if err == nil {
			metrics.PaymentsRequeued.Inc()
			logger.Info("payment requeued after retry", "correlationId", payment.CorrelationId)
			return
		}
		logger.Warn("requeue failed, retrying", "correlationId", payment.CorrelationId, "error", err)
	}
}

func (p *Pool) backoff(ctx context.Context) {
	if p.ErrorBackoff <= 0 {
		return
	}
	t := time.NewTimer(p.ErrorBackoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
