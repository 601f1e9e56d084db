package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringSize is the number of samples to retain (2 minutes at 1 sample/sec)
	ringSize = 120

	window1s  = 1 * time.Second
	window10s = 10 * time.Second
	window60s = 60 * time.Second
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type sample struct {
	at    time.Time
	count int64
}

// RateTracker counts completed work items (sessions parsed or failed) and
// reports rolling completion rates.
//
// Usage:
//
//	rt := NewRateTracker()
//	rt.Add(1)        // per finished file, lock-free
//	rt.Sample()      // once per second from the progress ticker
//	stats := rt.Stats()
type RateTracker struct {
	total atomic.Int64

	mu      sync.RWMutex
	samples []sample
	next    int

	start time.Time
	clock Clock
}

// RateStats is a point-in-time view of a RateTracker.
type RateStats struct {
	Total int64

	// Items per second over each window.
	Rate1s  float64
	Rate10s float64
	Rate60s float64

	Overall float64
}

// NewRateTracker creates a tracker using wall-clock time.
func NewRateTracker() *RateTracker {
	return NewRateTrackerWithClock(realClock{})
}

// NewRateTrackerWithClock creates a tracker with a custom clock.
func NewRateTrackerWithClock(clock Clock) *RateTracker {
	now := clock.Now()
	return &RateTracker{
		samples: append(make([]sample, 0, ringSize), sample{at: now}),
		start:   now,
		clock:   clock,
	}
}

// Add records n completed items. Non-positive values are ignored.
func (t *RateTracker) Add(n int64) {
	if n > 0 {
		t.total.Add(n)
	}
}

// Sample snapshots the running total for the rolling windows.
func (t *RateTracker) Sample() {
	s := sample{at: t.clock.Now(), count: t.total.Load()}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) < ringSize {
		t.samples = append(t.samples, s)
		return
	}
	t.samples[t.next] = s
	t.next = (t.next + 1) % ringSize
}

// Stats computes the current rates. Windows longer than the retained history
// fall back to the oldest sample, so rates never drop to zero while items
// are still arriving.
func (t *RateTracker) Stats() RateStats {
	now := t.clock.Now()
	total := t.total.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	st := RateStats{Total: total}
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		st.Overall = float64(total) / elapsed
	}
	st.Rate1s = t.rateOver(now, total, window1s)
	st.Rate10s = t.rateOver(now, total, window10s)
	st.Rate60s = t.rateOver(now, total, window60s)
	return st
}

// ETA estimates the time to finish remaining items at the 10s rate, falling
// back to the overall rate. Zero means unknown.
func (t *RateTracker) ETA(remaining int64) time.Duration {
	if remaining <= 0 {
		return 0
	}
	st := t.Stats()
	rate := st.Rate10s
	if rate <= 0 {
		rate = st.Overall
	}
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// rateOver must be called with mu held.
func (t *RateTracker) rateOver(now time.Time, total int64, window time.Duration) float64 {
	cutoff := now.Add(-window)

	// Newest sample at or before the cutoff.
	var best *sample
	for i := range t.samples {
		s := &t.samples[i]
		if s.at.After(cutoff) {
			continue
		}
		if best == nil || s.at.After(best.at) {
			best = s
		}
	}
	if best == nil {
		best = t.oldest()
	}

	elapsed := now.Sub(best.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total-best.count) / elapsed
}

func (t *RateTracker) oldest() *sample {
	if len(t.samples) < ringSize {
		return &t.samples[0]
	}
	return &t.samples[t.next]
}

// SampleCount returns the number of retained samples.
func (t *RateTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
