package session

import (
	"fmt"
	"slices"
	"sort"

	"github.com/randomizedcoder/go-playback-qoe/internal/timeseries"
)

// Element capture signal keys.
const (
	keyBuffer       = "BUF"
	keyCurrentTime  = "CUT"
	keyVideoHeight  = "VHE"
	keyVideoWidth   = "VWI"
	keyReadyState   = "RST"
	keyDecodedVideo = "WVD"
	keyDuration     = "DUR"
)

// Event is one discrete media event of an element capture.
type Event struct {
	TS   float64   `json:"ts"`
	Code EventCode `json:"code"`

	// state is the number of state samples recorded before the event.
	state int
}

// ElementSession is a session built from an HTML5 video element capture.
type ElementSession struct {
	base

	version    string
	hasVersion bool
	trimmed    bool

	buffers         [][]BufferInterval
	bufferDurations []float64
	heights         []int
	widths          []int
	videoRates      []float64
	decoded         []int64
	durations       []float64
	events          []Event
}

var _ Session = (*ElementSession)(nil)

// elementSignals holds the carry-forward series filled during ingestion.
type elementSignals struct {
	buffers     *Series[[]BufferInterval]
	positions   *Series[float64]
	heights     *Series[int]
	widths      *Series[int]
	readyStates *Series[int]
	decoded     *Series[int64]
	durations   *Series[float64]
}

func newElementSignals(versioned bool, n int) elementSignals {
	return elementSignals{
		buffers:     NewSeries(FieldExtractor(keyBuffer, []BufferInterval{{}}, parseBufferRanges(versioned)), n),
		positions:   NewSeries(FieldExtractor(keyCurrentTime, 0.0, parseFloat), n),
		heights:     NewSeries(FieldExtractor(keyVideoHeight, 0, parseInt), n),
		widths:      NewSeries(FieldExtractor(keyVideoWidth, 0, parseInt), n),
		readyStates: NewSeries(FieldExtractor(keyReadyState, HaveNothing, parseInt), n),
		decoded:     NewSeries(FieldExtractor(keyDecodedVideo, int64(0), parseInt64), n),
		durations:   NewSeries(FieldExtractor(keyDuration, 0.0, parseFloat), n),
	}
}

func (s elementSignals) next(tick RawTick, i int, rec IssueRecorder) {
	s.buffers.Next(tick, i, rec)
	s.positions.Next(tick, i, rec)
	s.heights.Next(tick, i, rec)
	s.widths.Next(tick, i, rec)
	s.readyStates.Next(tick, i, rec)
	s.decoded.Next(tick, i, rec)
	s.durations.Next(tick, i, rec)
}

// NewElementSession builds an element session from a decoded document.
func NewElementSession(doc *Document, opts ...Option) (*ElementSession, error) {
	o := buildOptions(opts)
	schema := ElementSchema

	s := &ElementSession{
		base:       newBase(doc, schema),
		version:    doc.Version,
		hasVersion: doc.HasVersion,
	}
	sig := newElementSignals(doc.HasVersion, len(doc.Ticks))
	eventCode := FieldExtractor(schema.EventKey, EventCode(0), func(v string) (EventCode, error) {
		n, err := parseInt(v)
		return EventCode(n), err
	})

	for i, tick := range doc.Ticks {
		ts, err := tick.timestamp()
		if err != nil {
			return nil, fieldError(fmt.Sprintf("%s[%d].%s", keyTicks, i, keyTimestamp), err)
		}
		rel := ts - doc.Start

		if tick.Has(schema.EventKey) {
			code, err := eventCode.Parse(tick)
			if err != nil {
				o.issues.RecordIssue(i, schema.EventKey, err)
				continue
			}
			s.events = append(s.events, Event{TS: rel, Code: code, state: len(s.timestamps)})
			continue
		}

		s.timestamps = append(s.timestamps, rel)
		sig.next(tick, i, o.issues)
	}

	s.buffers = sig.buffers.Values
	s.positions = sig.positions.Values
	s.heights = sig.heights.Values
	s.widths = sig.widths.Values
	s.readyStates = sig.readyStates.Values
	s.decoded = sig.decoded.Values
	s.durations = sig.durations.Values
	if s.events == nil {
		s.events = []Event{}
	}

	s.trimAbortedElement()
	s.derive()
	return s, nil
}

// trimAbortedElement drops the samples of a video element that was replaced
// right after start: an abort within the window that is not the last event,
// followed by a change in buffer composition. Samples before that change are
// discarded from every series.
func (s *ElementSession) trimAbortedElement() {
	abort := -1
	for k, ev := range s.events {
		if ev.Code == s.schema.AbortEvent && ev.TS <= s.schema.AbortWindow && k < len(s.events)-1 {
			abort = k
			break
		}
	}
	if abort < 0 || len(s.buffers) == 0 {
		return
	}

	at := s.events[abort].state
	baseline := s.buffers[max(at-1, 0)]
	cut := -1
	for i := max(at, 1); i < len(s.buffers); i++ {
		if !slices.Equal(s.buffers[i], baseline) {
			cut = i
			break
		}
	}
	if cut < 0 {
		return
	}

	s.timestamps = s.timestamps[cut:]
	s.buffers = s.buffers[cut:]
	s.positions = s.positions[cut:]
	s.heights = s.heights[cut:]
	s.widths = s.widths[cut:]
	s.readyStates = s.readyStates[cut:]
	s.decoded = s.decoded[cut:]
	s.durations = s.durations[cut:]

	kept := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.state >= cut {
			ev.state -= cut
			kept = append(kept, ev)
		}
	}
	s.events = kept
	s.trimmed = true
}

// derive computes the cross-signal series and the QoE events.
func (s *ElementSession) derive() {
	n := len(s.timestamps)
	s.videoRates = make([]float64, n)
	s.bufferDurations = make([]float64, n)
	s.resolutions = make([]Resolution, n)
	for i := 0; i < n; i++ {
		s.videoRates[i] = VideoRate(s.heights[i])
		s.bufferDurations[i] = bufferDuration(s.buffers[i], s.positions[i])
		s.resolutions[i] = Resolution{Width: s.widths[i], Height: s.heights[i]}
	}

	for _, ev := range s.events {
		if ev.Code == s.schema.JoinEvent {
			s.joinTime = ev.TS
			break
		}
	}

	var tracker stallTracker
	joined := false
	for _, ev := range s.events {
		switch ev.Code {
		case s.schema.JoinEvent:
			if !joined {
				joined = true
				continue
			}
			tracker.end(ev.TS)
		case s.schema.StallEvent:
			if joined {
				tracker.begin(ev.TS)
			}
		}
	}
	s.stalls = tracker.finish(s.sessionEnd())
	s.changes = bitrateChanges(s.timestamps, toFloats(s.heights), s.joinTime)
}

// Version returns the capture extension version, if the header carried one.
func (s *ElementSession) Version() (string, bool) { return s.version, s.hasVersion }

// Trimmed reports whether early-abort trimming removed leading samples.
func (s *ElementSession) Trimmed() bool { return s.trimmed }

func (s *ElementSession) Buffers() [][]BufferInterval { return s.buffers }
func (s *ElementSession) BufferDurations() []float64 { return s.bufferDurations }
func (s *ElementSession) Heights() []int { return s.heights }
func (s *ElementSession) Widths() []int { return s.widths }
func (s *ElementSession) VideoRates() []float64 { return s.videoRates }
func (s *ElementSession) DecodedVideoBytes() []int64 { return s.decoded }
func (s *ElementSession) Durations() []float64 { return s.durations }
func (s *ElementSession) Events() []Event { return s.events }

func (s *ElementSession) BufferAt(t float64) ([]BufferInterval, bool) {
	return timeseries.At(s.index, s.buffers, t)
}

func (s *ElementSession) BufferDurationAt(t float64) (float64, bool) {
	return timeseries.At(s.index, s.bufferDurations, t)
}

func (s *ElementSession) VideoRateAt(t float64) (float64, bool) {
	return timeseries.At(s.index, s.videoRates, t)
}

func (s *ElementSession) DurationAt(t float64) (float64, bool) {
	return timeseries.At(s.index, s.durations, t)
}

// ClosestHeight returns the height of the latest sample at or before the
// relative timestamp ts. Timestamps are assumed to be non-decreasing.
func (s *ElementSession) ClosestHeight(ts float64) (int, bool) {
	if len(s.timestamps) == 0 || ts < s.timestamps[0] {
		return 0, false
	}
	i := sort.Search(len(s.timestamps), func(i int) bool { return s.timestamps[i] > ts })
	return s.heights[i-1], true
}
