package session

import "math"

// stallTracker is the two-state idle/buffering machine shared by both formats.
type stallTracker struct {
	open    bool
	current Stall
	stalls  []Stall
}

// begin opens a stall at ts unless one is already open.
func (s *stallTracker) begin(ts float64) {
	if s.open {
		return
	}
	s.open = true
	s.current = Stall{Start: ts}
}

// end closes the open stall at ts, if any.
func (s *stallTracker) end(ts float64) {
	if !s.open {
		return
	}
	s.current.End = ts
	s.stalls = append(s.stalls, s.current)
	s.open = false
}

// finish closes a dangling stall at the session end and returns the list.
// A stall cannot end before it starts.
func (s *stallTracker) finish(sessionEnd float64) []Stall {
	if s.open {
		s.end(math.Max(sessionEnd, s.current.Start))
	}
	if s.stalls == nil {
		return []Stall{}
	}
	return s.stalls
}

// bitrateChanges scans consecutive samples after join and emits a record per
// strict increase or decrease.
func bitrateChanges(timestamps, values []float64, join float64) []BitrateChange {
	changes := []BitrateChange{}
	first := -1
	for i, ts := range timestamps {
		if ts > join {
			first = i
			break
		}
	}
	if first < 0 {
		return changes
	}
	for i := first + 1; i < len(values) && i < len(timestamps); i++ {
		prev, cur := values[i-1], values[i]
		switch {
		case cur > prev:
			changes = append(changes, BitrateChange{TS: timestamps[i], Direction: DirectionUp, Previous: prev, New: cur})
		case cur < prev:
			changes = append(changes, BitrateChange{TS: timestamps[i], Direction: DirectionDown, Previous: prev, New: cur})
		}
	}
	return changes
}

// bufferDuration is the buffered time ahead of position. When position sits
// in a gap, the furthest known buffered end is used instead; the result may
// be negative.
func bufferDuration(ranges []BufferInterval, position float64) float64 {
	maxEnd := 0.0
	for i, r := range ranges {
		if r.Start <= position && position <= r.End {
			return r.End - position
		}
		if i == 0 || r.End > maxEnd {
			maxEnd = r.End
		}
	}
	return maxEnd - position
}

// videoRateTable maps decoded frame height to a nominal megabit rate.
var videoRateTable = map[int]float64{
	2160: 40,
	1440: 16,
	1080: 8,
	720:  5,
	480:  2.5,
	360:  1,
	240:  0.5,
	144:  0.25,
}

// VideoRate returns the nominal rate for a frame height, or 0 if unknown.
func VideoRate(height int) float64 {
	return videoRateTable[height]
}

func toFloats[T int | int64](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
