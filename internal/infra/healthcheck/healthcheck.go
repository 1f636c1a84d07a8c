package healthcheck

import (
	"context"
	"log/slog"
	"rinha-relay/internal/domain"
	"rinha-relay/internal/metrics"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProcessorState is a snapshot of one upstream's health.
type ProcessorState struct {
	Processor     domain.Processor
	Healthy       bool
	LastCheckedAt time.Time
}

// HealthCheckService owns the health of both processors. Every read and write
// of the states and of lastGlobalCheck happens under mu; no I/O is done while
// holding it.
type HealthCheckService struct {
	prober   domain.HealthProber
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu              sync.Mutex
	states          map[domain.Processor]*ProcessorState
	lastGlobalCheck time.Time

	// held by the caller running a round
	round sync.Mutex
}

type Option func(*HealthCheckService)

func WithClock(now func() time.Time) Option {
	return func(h *HealthCheckService) { h.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *HealthCheckService) { h.logger = logger }
}

// NewHealthCheckService starts with both processors healthy and no probe done,
// so the first ProbeAllIfDue always runs a round.
func NewHealthCheckService(prober domain.HealthProber, interval time.Duration, opts ...Option) *HealthCheckService {
	h := &HealthCheckService{
		prober:   prober,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
		states:   make(map[domain.Processor]*ProcessorState, len(domain.Processors)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "healthcheck")
	for _, p := range domain.Processors {
		h.states[p] = &ProcessorState{Processor: p, Healthy: true}
		metrics.ProcessorHealthy.WithLabelValues(string(p)).Set(1)
	}
	return h
}

func (h *HealthCheckService) due(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return now.Sub(h.lastGlobalCheck) >= h.interval
}

// ProbeAllIfDue runs one health round when the interval since the previous
// round has elapsed. Callers that arrive while another caller's round is in
// flight return at once and keep using the current state.
func (h *HealthCheckService) ProbeAllIfDue(ctx context.Context) {
	if !h.due(h.now()) {
		return
	}
	if !h.round.TryLock() {
		return
	}
	defer h.round.Unlock()

	start := h.now()
	// a round may have completed between the due check and the lock
	if !h.due(start) {
		return
	}
	h.probeAll(ctx, start)
}

func (h *HealthCheckService) probeAll(ctx context.Context, start time.Time) {
	results := make([]bool, len(domain.Processors))

	var g errgroup.Group
	for i, p := range domain.Processors {
		i, p := i, p
		g.Go(func() error {
			healthy, err := h.prober.CheckHealth(ctx, p)
			if err != nil {
				h.logger.Debug("health probe failed", "processor", p, "error", err)
				healthy = false
			}
			results[i] = healthy
			return nil
		})
	}
	_ = g.Wait()

	checkedAt := h.now()
	var changed [len(domain.Processors)]bool
	h.mu.Lock()
	for i, p := range domain.Processors {
		st := h.states[p]
		changed[i] = st.Healthy != results[i]
		st.Healthy = results[i]
		st.LastCheckedAt = checkedAt
	}
	h.lastGlobalCheck = start
	h.mu.Unlock()

	for i, p := range domain.Processors {
		if changed[i] {
			h.logger.Info("processor health changed", "processor", p, "healthy", results[i])
		}
		metrics.ProcessorHealthy.WithLabelValues(string(p)).Set(boolGauge(results[i]))
	}
	metrics.HealthProbeRounds.Inc()
}

// MarkUnhealthy flags a processor right after a failed call, ahead of the next
// probe round.
func (h *HealthCheckService) MarkUnhealthy(p domain.Processor) {
	h.mu.Lock()
	st, ok := h.states[p]
	changed := ok && st.Healthy
	if ok {
		st.Healthy = false
	}
	h.mu.Unlock()

	if changed {
		h.logger.Info("processor marked unhealthy", "processor", p)
		metrics.ProcessorHealthy.WithLabelValues(string(p)).Set(0)
	}
}

func (h *HealthCheckService) IsHealthy(p domain.Processor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.states[p]
	return ok && st.Healthy
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
