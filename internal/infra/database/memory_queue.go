package database

import (
	"context"
	"rinha-relay/internal/domain"
	"sync"
	"time"
)

// MemQueue is an unbounded in-process FIFO. It does not survive a restart.
type MemQueue struct {
	mu     sync.Mutex
	items  []domain.Payment
	notify chan struct{}
}

func NewMemQueue() *MemQueue {
	return &MemQueue{notify: make(chan struct{}, 1)}
}

func (q *MemQueue) Push(_ context.Context, payment domain.Payment) error {
	q.mu.Lock()
	q.items = append(q.items, payment)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemQueue) BlockingPop(ctx context.Context, timeout time.Duration) (domain.Payment, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if p, ok := q.tryPop(); ok {
			return p, true, nil
		}
		select {
		case <-q.notify:
		case <-timer.C:
			p, ok := q.tryPop()
			return p, ok, nil
		case <-ctx.Done():
			return domain.Payment{}, false, ctx.Err()
		}
	}
}

func (q *MemQueue) tryPop() (domain.Payment, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.Payment{}, false
	}
	p := q.items[0]
	q.items[0] = domain.Payment{}
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// wake the next waiter
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return p, true
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
