package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Processor string

const (
	ProcessorDefault  Processor = "default"
	ProcessorFallback Processor = "fallback"
)

// Processors lists every upstream in preference order.
var Processors = [...]Processor{ProcessorDefault, ProcessorFallback}

// Other returns the alternate processor.
func (p Processor) Other() Processor {
	if p == ProcessorDefault {
		return ProcessorFallback
	}
	return ProcessorDefault
}

func (p Processor) Valid() bool {
	return p == ProcessorDefault || p == ProcessorFallback
}

// Payment is the unit of work flowing through the queue. RequestedAt and
// Processor are only set by settlement.
type Payment struct {
	CorrelationId string          `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   time.Time       `json:"-"`
	Processor     Processor       `json:"-"`
}

// LedgerEntry is the persisted record of a settled payment.
type LedgerEntry struct {
	Processor     Processor       `json:"processor"`
	CorrelationId string          `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
}

func NewLedgerEntry(p Payment) LedgerEntry {
	return LedgerEntry{
		Processor:     p.Processor,
		CorrelationId: p.CorrelationId,
		Amount:        p.Amount,
	}
}

// Score is the sorted-index score for a settlement instant: unix seconds with
// a fractional part.
func Score(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
