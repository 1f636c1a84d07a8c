package domain

import "github.com/shopspring/decimal"

type Summary struct {
	Default  SummaryItem `json:"default"`
	Fallback SummaryItem `json:"fallback"`
}

type SummaryItem struct {
	TotalRequests int             `json:"totalRequests"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// Item returns a pointer to the per-processor bucket, or nil for an unknown
// processor.
func (s *Summary) Item(p Processor) *SummaryItem {
	switch p {
	case ProcessorDefault:
		return &s.Default
	case ProcessorFallback:
		return &s.Fallback
	}
	return nil
}
