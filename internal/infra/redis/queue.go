package redis

import (
	"context"
	"errors"
	"fmt"
	"rinha-relay/internal/domain"
	"time"

	json "github.com/json-iterator/go"

	"github.com/redis/go-redis/v9"
)

// RedisPaymentQueue is a FIFO over a Redis list: RPUSH at the tail, BLPOP at
// the head.
type RedisPaymentQueue struct {
	client *redis.Client
	key    string
}

func NewRedisPaymentQueue(client *redis.Client) *RedisPaymentQueue {
	return &RedisPaymentQueue{client: client, key: PAYMENTS_QUEUE}
}

func (q *RedisPaymentQueue) Push(ctx context.Context, payment domain.Payment) error {
	body, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("encode payment %s: %w", payment.CorrelationId, err)
	}
	if err := q.client.RPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("push payment %s: %w", payment.CorrelationId, err)
	}
	return nil
}

func (q *RedisPaymentQueue) BlockingPop(ctx context.Context, timeout time.Duration) (domain.Payment, bool, error) {
	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Payment{}, false, nil
		}
		return domain.Payment{}, false, fmt.Errorf("pop payment: %w", err)
	}

	var payment domain.Payment
	if err := json.Unmarshal([]byte(result[1]), &payment); err != nil {
		return domain.Payment{}, false, fmt.Errorf("decode queued payment %q: %w", result[1], err)
	}
	return payment, true, nil
}

// Len reports the number of queued payments.
func (q *RedisPaymentQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
