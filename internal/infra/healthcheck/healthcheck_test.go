package healthcheck

import (
	"context"
	"errors"
	"rinha-relay/internal/domain"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mu      sync.Mutex
	healthy map[domain.Processor]bool
	errs    map[domain.Processor]error
	calls   atomic.Int32
	delay   time.Duration
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		healthy: map[domain.Processor]bool{domain.ProcessorDefault: true, domain.ProcessorFallback: true},
		errs:    map[domain.Processor]error{},
	}
}

func (f *fakeProber) set(p domain.Processor, healthy bool) {
	f.mu.Lock()
	f.healthy[p] = healthy
	f.mu.Unlock()
}

func (f *fakeProber) CheckHealth(_ context.Context, p domain.Processor) (bool, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy[p], f.errs[p]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStartsHealthy(t *testing.T) {
	h := NewHealthCheckService(newFakeProber(), 5*time.Second)
	assert.True(t, h.IsHealthy(domain.ProcessorDefault))
	assert.True(t, h.IsHealthy(domain.ProcessorFallback))
	assert.False(t, h.IsHealthy("unknown"))
}

func TestProbeIsThrottled(t *testing.T) {
	prober := newFakeProber()
	clk := &clock{now: time.Unix(1000, 0)}
	h := NewHealthCheckService(prober, 5*time.Second, WithClock(clk.Now))
	ctx := context.Background()

	h.ProbeAllIfDue(ctx)
	assert.EqualValues(t, 2, prober.calls.Load(), "first round probes both processors")

	clk.Advance(4 * time.Second)
	h.ProbeAllIfDue(ctx)
	assert.EqualValues(t, 2, prober.calls.Load())

	clk.Advance(time.Second)
	h.ProbeAllIfDue(ctx)
	assert.EqualValues(t, 4, prober.calls.Load())
}

func TestProbeUpdatesHealth(t *testing.T) {
	prober := newFakeProber()
	prober.set(domain.ProcessorDefault, false)
	prober.errs[domain.ProcessorFallback] = errors.New("connection refused")
	clk := &clock{now: time.Unix(1000, 0)}
	h := NewHealthCheckService(prober, time.Second, WithClock(clk.Now))

	h.ProbeAllIfDue(context.Background())

	assert.False(t, h.IsHealthy(domain.ProcessorDefault))
	assert.False(t, h.IsHealthy(domain.ProcessorFallback))
	h.mu.Lock()
	for _, st := range h.states {
		assert.Equal(t, time.Unix(1000, 0), st.LastCheckedAt)
	}
	h.mu.Unlock()

	prober.set(domain.ProcessorDefault, true)
	delete(prober.errs, domain.ProcessorFallback)
	clk.Advance(time.Second)
	h.ProbeAllIfDue(context.Background())

	assert.True(t, h.IsHealthy(domain.ProcessorDefault))
	assert.True(t, h.IsHealthy(domain.ProcessorFallback))
}

func TestConcurrentCallersShareOneRound(t *testing.T) {
	prober := newFakeProber()
	prober.delay = 50 * time.Millisecond
	h := NewHealthCheckService(prober, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ProbeAllIfDue(context.Background())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 2, prober.calls.Load())
}

func TestCallersDoNotWaitForRoundInFlight(t *testing.T) {
	prober := newFakeProber()
	prober.set(domain.ProcessorDefault, false)
	prober.delay = 300 * time.Millisecond
	h := NewHealthCheckService(prober, time.Hour)

	roundDone := make(chan struct{})
	go func() {
		h.ProbeAllIfDue(context.Background())
		close(roundDone)
	}()
	require.Eventually(t, func() bool { return prober.calls.Load() > 0 }, time.Second, time.Millisecond)

	started := time.Now()
	h.ProbeAllIfDue(context.Background())
	assert.Less(t, time.Since(started), 150*time.Millisecond, "caller blocked on another caller's round")
	assert.True(t, h.IsHealthy(domain.ProcessorDefault), "state before the round completes")

	<-roundDone
	assert.False(t, h.IsHealthy(domain.ProcessorDefault))
	assert.EqualValues(t, 2, prober.calls.Load())
}

func TestMarkUnhealthyIsImmediate(t *testing.T) {
	clk := &clock{now: time.Unix(1000, 0)}
	h := NewHealthCheckService(newFakeProber(), time.Minute, WithClock(clk.Now))
	h.ProbeAllIfDue(context.Background())
	require.True(t, h.IsHealthy(domain.ProcessorDefault))

	h.MarkUnhealthy(domain.ProcessorDefault)

	assert.False(t, h.IsHealthy(domain.ProcessorDefault))
	assert.True(t, h.IsHealthy(domain.ProcessorFallback))

	// throttled: the mark survives until the next round
	h.ProbeAllIfDue(context.Background())
	assert.False(t, h.IsHealthy(domain.ProcessorDefault))
}

func TestMarkUnhealthyUnknownProcessor(t *testing.T) {
	h := NewHealthCheckService(newFakeProber(), time.Minute)
	h.MarkUnhealthy("nope")
	assert.True(t, h.IsHealthy(domain.ProcessorDefault))
}
