package database

import (
	"context"
	"fmt"
	"rinha-relay/internal/domain"
	"sort"
	"sync"
	"time"
)

type memEntry struct {
	key   string
	score float64
	entry domain.LedgerEntry
}

// MemDB is an in-process ledger with the same keying as the Redis store: a
// second settlement of the same (processor, correlationId) overwrites the value
// and moves its score.
type MemDB struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	index   []*memEntry // sorted by score
}

func NewMemDB() *MemDB {
	return &MemDB{
		entries: make(map[string]*memEntry),
	}
}

func (s *MemDB) Record(_ context.Context, payment domain.Payment) error {
	if !payment.Processor.Valid() {
		return fmt.Errorf("record payment %s: unknown processor %q", payment.CorrelationId, payment.Processor)
	}
	key := string(payment.Processor) + ":" + payment.CorrelationId
	score := domain.Score(payment.RequestedAt)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.removeFromIndex(old)
	}
	e := &memEntry{key: key, score: score, entry: domain.NewLedgerEntry(payment)}
	s.entries[key] = e

	i := sort.Search(len(s.index), func(i int) bool { return s.index[i].score > score })
	s.index = append(s.index, nil)
	copy(s.index[i+1:], s.index[i:])
	s.index[i] = e
	return nil
}

func (s *MemDB) removeFromIndex(e *memEntry) {
	for i, cur := range s.index {
		if cur == e {
			s.index = append(s.index[:i], s.index[i+1:]...)
			return
		}
	}
}

func (s *MemDB) Range(_ context.Context, from, to time.Time) ([]domain.LedgerEntry, error) {
	fromTs, toTs := domain.Score(from), domain.Score(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.index), func(i int) bool { return s.index[i].score >= fromTs })
	var entries []domain.LedgerEntry
	for _, e := range s.index[start:] {
		if e.score > toTs {
			break
		}
		entries = append(entries, e.entry)
	}
	return entries, nil
}

func (s *MemDB) Purge(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*memEntry)
	s.index = nil
	s.mu.Unlock()
	return nil
}
