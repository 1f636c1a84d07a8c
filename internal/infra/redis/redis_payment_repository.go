package redis

import (
	"context"
	"fmt"
	"log/slog"
	"rinha-relay/internal/domain"
	"time"

	json "github.com/json-iterator/go"

	"github.com/redis/go-redis/v9"
)

// RedisPaymentRepository is the ledger: one string value per settled payment
// plus the "payments" sorted set scored by settlement time.
type RedisPaymentRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisPaymentRepository(client *redis.Client, logger *slog.Logger) *RedisPaymentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPaymentRepository{client: client, logger: logger}
}

func (r *RedisPaymentRepository) Record(ctx context.Context, payment domain.Payment) error {
	if !payment.Processor.Valid() {
		return fmt.Errorf("record payment %s: unknown processor %q", payment.CorrelationId, payment.Processor)
	}
	value, err := json.Marshal(domain.NewLedgerEntry(payment))
	if err != nil {
		return fmt.Errorf("encode ledger entry %s: %w", payment.CorrelationId, err)
	}
	key := paymentKey(payment.Processor, payment.CorrelationId)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.ZAdd(ctx, PAYMENTS_INDEX, redis.Z{Score: domain.Score(payment.RequestedAt), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store payment %s: %w", payment.CorrelationId, err)
	}
	return nil
}

func (r *RedisPaymentRepository) Range(ctx context.Context, from, to time.Time) ([]domain.LedgerEntry, error) {
	keys, err := r.client.ZRangeByScore(ctx, PAYMENTS_INDEX, &redis.ZRangeBy{
		Min: formatScore(from),
		Max: formatScore(to),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range payments: %w", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(keys))
	for start := 0; start < len(keys); start += mgetBatch {
		end := min(start+mgetBatch, len(keys))
		values, err := r.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve payments: %w", err)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				// purged between ZRANGEBYSCORE and MGET
				continue
			}
			var entry domain.LedgerEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				r.logger.Warn("skipping undecodable ledger entry", "key", keys[start+i], "error", err)
				continue
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *RedisPaymentRepository) Purge(ctx context.Context) error {
	keys, err := r.client.ZRange(ctx, PAYMENTS_INDEX, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("error getting payment keys for purge: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for start := 0; start < len(keys); start += mgetBatch {
			end := min(start+mgetBatch, len(keys))
			pipe.Del(ctx, keys[start:end]...)
		}
		pipe.Del(ctx, PAYMENTS_INDEX)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error purging payments: %w", err)
	}
	return nil
}
