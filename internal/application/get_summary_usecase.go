package application

import (
	"context"
	"fmt"
	"rinha-relay/internal/domain"
	"time"
)

var (
	// Bounds used by the API when the query omits from/to.
	DefaultSummaryFrom = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultSummaryTo   = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
)

type GetSummaryUseCase struct {
	Repo domain.PaymentLedger
}

// Execute totals the ledger entries settled in [from, to]. Amounts are summed
// exactly and rounded to cents only at the end.
func (s *GetSummaryUseCase) Execute(ctx context.Context, from, to time.Time) (domain.Summary, error) {
	var summary domain.Summary
	if to.Before(from) {
		return summary, nil
	}

	entries, err := s.Repo.Range(ctx, from, to)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize payments: %w", err)
	}

	for _, e := range entries {
		item := summary.Item(e.Processor)
		if item == nil {
			continue
		}
		item.TotalRequests++
		item.TotalAmount = item.TotalAmount.Add(e.Amount)
	}
	summary.Default.TotalAmount = summary.Default.TotalAmount.Round(2)
	summary.Fallback.TotalAmount = summary.Fallback.TotalAmount.Round(2)
	return summary, nil
}
