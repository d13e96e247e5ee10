// Package clock provides the fixed-rate frame pacer driving the sequencer's
// tick loop.
package clock

import (
	"sync"
	"time"
)

// TimeBarrier paces a loop at a fixed frame rate. Each Wait blocks until the
// next absolute deadline rather than sleeping a fixed duration from "now", so
// jitter in one frame does not accumulate into drift. If the caller falls
// more than one whole interval behind, the schedule re-anchors to the current
// time instead of bursting catch-up frames.
type TimeBarrier struct {
	mu       sync.Mutex
	interval time.Duration
	deadline time.Time
	started  bool
}

// New creates a barrier firing at the given rate in Hz.
func New(rateHz float64) *TimeBarrier {
	if rateHz <= 0 {
		rateHz = 60
	}
	return &TimeBarrier{interval: time.Duration(float64(time.Second) / rateHz)}
}

func (b *TimeBarrier) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.deadline = time.Now().Add(b.interval)
}

// Wait blocks the caller until the next frame boundary. Returns immediately
// when the barrier is not started.
func (b *TimeBarrier) Wait() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	d := b.deadline
	now := time.Now()
	if now.Sub(d) > b.interval {
		// Fell behind by more than a frame: re-anchor.
		d = now
	}
	b.deadline = d.Add(b.interval)
	b.mu.Unlock()

	if until := time.Until(d); until > 0 {
		time.Sleep(until)
	}
}

func (b *TimeBarrier) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
}

// Interval returns the frame period.
func (b *TimeBarrier) Interval() time.Duration {
	return b.interval
}
