package redis

import (
	"context"
	"rinha-relay/internal/domain"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func settled(id, amount string, processor domain.Processor, at int64) domain.Payment {
	return domain.Payment{
		CorrelationId: id,
		Amount:        decimal.RequireFromString(amount),
		Processor:     processor,
		RequestedAt:   time.Unix(at, 0),
	}
}

func TestQueuePushPopIsFIFO(t *testing.T) {
	client, _ := newTestClient(t)
	q := NewRedisPaymentQueue(client)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, domain.Payment{CorrelationId: "a", Amount: decimal.NewFromInt(1)}))
	require.NoError(t, q.Push(ctx, domain.Payment{CorrelationId: "b", Amount: decimal.RequireFromString("2.50")}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	p, ok, err := q.BlockingPop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", p.CorrelationId)

	p, ok, err = q.BlockingPop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", p.CorrelationId)
	assert.True(t, decimal.RequireFromString("2.5").Equal(p.Amount))
}

func TestQueuePopTimesOutEmpty(t *testing.T) {
	client, _ := newTestClient(t)
	q := NewRedisPaymentQueue(client)

	_, ok, err := q.BlockingPop(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueStoresOnlyIdAndAmount(t *testing.T) {
	client, mr := newTestClient(t)
	q := NewRedisPaymentQueue(client)

	p := settled("abc-1", "19.90", domain.ProcessorDefault, 100)
	require.NoError(t, q.Push(context.Background(), p))

	items, err := mr.List(PAYMENTS_QUEUE)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"correlationId":"abc-1","amount":19.9}`, items[0])
}

func TestQueuePopRejectsGarbage(t *testing.T) {
	client, mr := newTestClient(t)
	q := NewRedisPaymentQueue(client)
	_, err := mr.Push(PAYMENTS_QUEUE, "not-json")
	require.NoError(t, err)

	_, ok, err := q.BlockingPop(context.Background(), time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRecordWritesValueAndIndex(t *testing.T) {
	client, mr := newTestClient(t)
	repo := NewRedisPaymentRepository(client, nil)

	require.NoError(t, repo.Record(context.Background(), settled("abc-1", "19.90", domain.ProcessorDefault, 100)))

	value, err := mr.Get("payment:default:abc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"processor":"default","correlationId":"abc-1","amount":19.9}`, value)

	score, err := mr.ZScore(PAYMENTS_INDEX, "payment:default:abc-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestRecordRejectsUnsetProcessor(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewRedisPaymentRepository(client, nil)

	err := repo.Record(context.Background(), settled("x", "1", "", 100))
	assert.Error(t, err)
}

func TestRangeIsInclusive(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewRedisPaymentRepository(client, nil)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, settled("t100", "10", domain.ProcessorDefault, 100)))
	require.NoError(t, repo.Record(ctx, settled("t200", "20", domain.ProcessorFallback, 200)))
	require.NoError(t, repo.Record(ctx, settled("t300", "30", domain.ProcessorDefault, 300)))

	entries, err := repo.Range(ctx, time.Unix(150, 0), time.Unix(250, 0))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t200", entries[0].CorrelationId)
	assert.Equal(t, domain.ProcessorFallback, entries[0].Processor)

	entries, err = repo.Range(ctx, time.Unix(100, 0), time.Unix(300, 0))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRangeSkipsDanglingIndexMembers(t *testing.T) {
	client, mr := newTestClient(t)
	repo := NewRedisPaymentRepository(client, nil)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, settled("kept", "1", domain.ProcessorDefault, 100)))
	_, err := mr.ZAdd(PAYMENTS_INDEX, 101, "payment:default:gone")
	require.NoError(t, err)

	entries, err := repo.Range(ctx, time.Unix(0, 0), time.Unix(1000, 0))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].CorrelationId)
}

func TestSameIdOnBothProcessorsKeepsTwoEntries(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewRedisPaymentRepository(client, nil)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, settled("dup", "5", domain.ProcessorDefault, 100)))
	require.NoError(t, repo.Record(ctx, settled("dup", "5", domain.ProcessorFallback, 101)))

	entries, err := repo.Range(ctx, time.Unix(0, 0), time.Unix(1000, 0))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPurgeRemovesValuesAndIndex(t *testing.T) {
	client, mr := newTestClient(t)
	repo := NewRedisPaymentRepository(client, nil)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, settled("a", "1", domain.ProcessorDefault, 100)))
	require.NoError(t, repo.Record(ctx, settled("b", "2", domain.ProcessorFallback, 200)))
	require.NoError(t, NewRedisPaymentQueue(client).Push(ctx, domain.Payment{CorrelationId: "queued", Amount: decimal.NewFromInt(3)}))

	require.NoError(t, repo.Purge(ctx))

	assert.False(t, mr.Exists("payment:default:a"))
	assert.False(t, mr.Exists("payment:fallback:b"))
	assert.False(t, mr.Exists(PAYMENTS_INDEX))
	assert.True(t, mr.Exists(PAYMENTS_QUEUE), "purge must not touch queued payments")

	entries, err := repo.Range(ctx, time.Unix(0, 0), time.Unix(1000, 0))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPurgeEmptyLedger(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, NewRedisPaymentRepository(client, nil).Purge(context.Background()))
}
