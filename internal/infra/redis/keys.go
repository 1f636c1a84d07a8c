package redis

import (
	"rinha-relay/internal/domain"
	"strconv"
	"time"
)

const (
	PAYMENTS_QUEUE = "queue:payments"
	PAYMENTS_INDEX = "payments"

	// mgetBatch bounds the number of keys sent in a single MGET/DEL.
	mgetBatch = 1000
)

func paymentKey(processor domain.Processor, correlationId string) string {
	return "payment:" + string(processor) + ":" + correlationId
}

func formatScore(t time.Time) string {
	return strconv.FormatFloat(domain.Score(t), 'f', -1, 64)
}
