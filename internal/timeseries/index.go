// Package timeseries provides fixed-granularity lookup into tick-aligned series.
//
// Captured telemetry arrives at irregular intervals, but consumers (request
// correlation, plotting) ask "what was the player doing at wall-clock time t".
// An Index answers that in O(1) by assuming one sample per granularity bucket
// since the session origin:
//
//	i = floor((t - origin) / granularity)
//
// This is a nearest-preceding-bucket approximation, not an interpolation.
package timeseries

import "math"

// Index maps wall-clock timestamps onto series positions.
type Index struct {
	// Origin is the session start time, in the same unit as lookups.
	Origin float64

	// Granularity is the bucket width (500 for element captures, 1000 for overlay).
	Granularity float64
}

// NewIndex creates an index anchored at origin.
func NewIndex(origin, granularity float64) Index {
	return Index{Origin: origin, Granularity: granularity}
}

// Position returns the bucket for wall-clock time t in a series of length n.
//
// Returns false if t is not positive, t is at or before the origin, or the
// bucket falls past the end of the series.
func (ix Index) Position(t float64, n int) (int, bool) {
	if t <= 0 || t <= ix.Origin || ix.Granularity <= 0 {
		return 0, false
	}
	f := math.Floor((t - ix.Origin) / ix.Granularity)
	if f >= float64(n) {
		return 0, false
	}
	return int(f), true
}

// At returns values[Position(t)] or the zero value and false.
func At[T any](ix Index, values []T, t float64) (T, bool) {
	i, ok := ix.Position(t, len(values))
	if !ok {
		var zero T
		return zero, false
	}
	return values[i], true
}
