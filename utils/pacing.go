package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Range is an inclusive pause interval.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pacer sleeps for random durations between page interactions to look less
// like a bot. It is the only throttle in the pipeline.
type Pacer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer seeded from the clock.
func NewPacer() *Pacer {
	return &Pacer{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepCtx,
	}
}

// NewPacerWith creates a Pacer with a fixed seed and a custom sleep function.
func NewPacerWith(seed int64, sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	return &Pacer{
		rng:   rand.New(rand.NewSource(seed)),
		sleep: sleep,
	}
}

// Pause sleeps for a uniformly random duration within r. It returns early with
// the context error if ctx is cancelled.
func (p *Pacer) Pause(ctx context.Context, r Range) error {
	return p.sleep(ctx, p.Pick(r))
}

// Pick returns a uniformly random duration within r.
func (p *Pacer) Pick(r Range) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + time.Duration(p.rng.Int63n(int64(r.Max-r.Min)+1))
}

// PickString returns one element of choices at random, or "" for none.
func (p *Pacer) PickString(choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return choices[p.rng.Intn(len(choices))]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
