package svi

import (
	"context"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pacer sleeps a jittered delay between tournament probe requests so
// the fetcher doesn't hammer the upstream in a tight loop. The jitter
// is +/-25% of the configured delay, matching gsvi's
// `delay + random.uniform(-delay*0.25, delay*0.25)`.
type Pacer struct {
	delay  time.Duration
	rand   *rand.Rand
	probes prometheus.Counter
}

// NewPacer builds a Pacer with the given base delay. A zero delay
// makes Wait a no-op, useful for tests.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// WithProbeCounter attaches a counter that Wait increments once per
// call, so a caller can track how many tournament probes were issued.
func (p *Pacer) WithProbeCounter(c prometheus.Counter) *Pacer {
	p.probes = c
	return p
}

// Wait blocks for delay +/- 25% jitter, or returns early if ctx is
// cancelled first. Every call, including no-op ones, counts as one
// tournament probe having been issued.
func (p *Pacer) Wait(ctx context.Context) {
	if p == nil {
		return
	}
	if p.probes != nil {
		p.probes.Inc()
	}
	if p.delay <= 0 {
		return
	}
	jitter := time.Duration(p.rand.Float64()*float64(p.delay)/2 - float64(p.delay)/4)
	d := p.delay + jitter
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
