package application

import (
	"context"
	"rinha-relay/internal/domain"
	"time"
)

// HealthReader is the read side of the processor registry.
type HealthReader interface {
	IsHealthy(p domain.Processor) bool
}

// FailoverSelector picks the attempt order for one settlement pass.
type FailoverSelector struct {
	Health HealthReader
	// BothDownDelay is waited before returning when neither processor is
	// healthy, so a fully-down upstream is not hammered.
	BothDownDelay time.Duration
}

// Order returns the processor to try first and the one to fail over to. It
// only returns early if ctx is cancelled during the both-down delay.
func (s *FailoverSelector) Order(ctx context.Context) (first, second domain.Processor) {
	first = domain.ProcessorDefault
	switch {
	case s.Health.IsHealthy(domain.ProcessorDefault):
	case s.Health.IsHealthy(domain.ProcessorFallback):
		first = domain.ProcessorFallback
	default:
		s.waitBothDown(ctx)
	}
	return first, first.Other()
}

func (s *FailoverSelector) waitBothDown(ctx context.Context) {
	if s.BothDownDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.BothDownDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
