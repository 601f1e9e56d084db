package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/mssola/useragent"

	"github.com/randomizedcoder/go-playback-qoe/internal/timeseries"
)

// Overlay capture signal keys.
const (
	keyPosition         = "Pos"
	keyBufferingBitrate = "BBR"
	keyPlayingBitrate   = "PBR"
	keyBufferBytes      = "BB1"
	keyBufferSeconds    = "BSe"
	keyResolution       = "Res"
	keyThroughput       = "Th"
	keyRenderingState   = "RS"
	keyDiagnostics      = "VD"

	// Metadata carried by the first tick only.
	keyPlayerVersion = "V"
	keyDevice        = "ESN"
	keyUserAgent     = "UA"
)

// Client is the browser and platform parsed from the capture user agent.
type Client struct {
	UserAgent      string `json:"user_agent"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Mobile         bool   `json:"mobile"`
}

// ParseClient classifies a user-agent string.
func ParseClient(ua string) Client {
	c := Client{UserAgent: ua}
	if ua == "" {
		return c
	}
	parsed := useragent.New(ua)
	c.Browser, c.BrowserVersion = parsed.Browser()
	c.OS = parsed.OS()
	c.Mobile = parsed.Mobile()
	return c
}

// OverlaySession is a session built from a player diagnostics overlay capture.
type OverlaySession struct {
	base

	shortcutTime  float64
	playerVersion string
	device        string
	client        Client
	repaired      bool

	bufferingBitrates []float64
	playingBitrates   []float64
	bufferBytes       []AV[int64]
	bufferSeconds     []AV[float64]
	throughputs       []float64
	renderingStates   []string
	bufferStalls      []Stall
}

var _ Session = (*OverlaySession)(nil)

// resolutionExtractor prefers the explicit Res field and falls back to the
// frame size embedded in the playing bitrate when that bitrate is known.
func resolutionExtractor() Extractor[Resolution] {
	return Extractor[Resolution]{
		Signal: keyResolution,
		Parse: func(t RawTick) (Resolution, error) {
			if f := t.Field(keyResolution); f.Present {
				r, err := parseResolution(strings.TrimSpace(f.Text))
				if err != nil {
					return Resolution{}, malformed(keyResolution, f.Text, err)
				}
				return r, nil
			}
			f := t.Field(keyPlayingBitrate)
			if !f.Present || strings.Contains(f.Text, "?") {
				return Resolution{}, errAbsent
			}
			r, err := resolutionFromBitrate(f.Text)
			if err != nil {
				return Resolution{}, malformed(keyPlayingBitrate, f.Text, err)
			}
			return r, nil
		},
	}
}

// NewOverlaySession builds an overlay session from a decoded document.
func NewOverlaySession(doc *Document, opts ...Option) (*OverlaySession, error) {
	o := buildOptions(opts)
	schema := OverlaySchema
	n := len(doc.Ticks)

	s := &OverlaySession{
		base:         newBase(doc, schema),
		shortcutTime: doc.ShortcutTime,
		repaired:     doc.Repaired,
	}
	if n > 0 {
		first := doc.Ticks[0]
		s.playerVersion = first.Field(keyPlayerVersion).Text
		s.device = first.Field(keyDevice).Text
		s.client = ParseClient(first.Field(keyUserAgent).Text)
	}

	positions := NewSeries(FieldExtractor(keyPosition, 0.0, parseFloat), n)
	buffering := NewSeries(FieldExtractor(keyBufferingBitrate, 0.0, parseBitrateSum), n)
	playing := NewSeries(FieldExtractor(keyPlayingBitrate, 0.0, parseBitrateSum), n)
	bytes := NewSeries(FieldExtractor(keyBufferBytes, AV[int64]{}, parseAVInt), n)
	seconds := NewSeries(FieldExtractor(keyBufferSeconds, AV[float64]{}, parseAVFloat), n)
	resolutions := NewSeries(resolutionExtractor(), n)
	throughput := NewSeries(FieldExtractor(keyThroughput, 0.0, parseFloat), n)
	rendering := NewSeries(FieldExtractor(keyRenderingState, "", parseString), n)
	ready := NewSeries(FieldExtractor(keyDiagnostics, HaveNothing, parseDiagnosticReadyState), n)

	s.timestamps = make([]float64, 0, n)
	for i, tick := range doc.Ticks {
		ts, err := tick.timestamp()
		if err != nil {
			return nil, fieldError(fmt.Sprintf("%s[%d].%s", keyTicks, i, keyTimestamp), err)
		}
		s.timestamps = append(s.timestamps, ts-doc.Start)

		positions.Next(tick, i, o.issues)
		buffering.Next(tick, i, o.issues)
		playing.Next(tick, i, o.issues)
		bytes.Next(tick, i, o.issues)
		seconds.Next(tick, i, o.issues)
		resolutions.Next(tick, i, o.issues)
		throughput.Next(tick, i, o.issues)
		rendering.Next(tick, i, o.issues)
		ready.Next(tick, i, o.issues)
	}

	s.positions = positions.Values
	s.bufferingBitrates = buffering.Values
	s.playingBitrates = playing.Values
	s.bufferBytes = bytes.Values
	s.bufferSeconds = seconds.Values
	s.resolutions = resolutions.Values
	s.throughputs = throughput.Values
	s.renderingStates = rendering.Values
	s.readyStates = ready.Values

	s.derive()
	return s, nil
}

// positionDelta is pos[i] - pos[i-1], or 0 at the first sample.
func (s *OverlaySession) positionDelta(i int) float64 {
	if i <= 0 {
		return 0
	}
	return s.positions[i] - s.positions[i-1]
}

func (s *OverlaySession) derive() {
	// Join is detected one tick late; back it off by the playback progress
	// made since the previous sample.
	for i, state := range s.renderingStates {
		if state == s.schema.PlayingState {
			s.joinTime = s.timestamps[i] - s.positionDelta(i)
			break
		}
	}

	var tracker stallTracker
	for i, rs := range s.readyStates {
		if rs == s.schema.StallReadyState {
			tracker.begin(s.timestamps[i])
		} else {
			tracker.end(s.timestamps[i])
		}
	}
	s.stalls = tracker.finish(s.sessionEnd())

	s.changes = bitrateChanges(s.timestamps, s.bufferingBitrates, s.joinTime)
	s.bufferStalls = s.emptyBufferStalls()
}

// emptyBufferStalls derives stalls from the video buffer running dry. Leading
// empty samples before the buffer first fills are not stalls. Boundaries are
// offset by one unit and the position progress since the previous sample.
func (s *OverlaySession) emptyBufferStalls() []Stall {
	var tracker stallTracker
	started := false
	for i, b := range s.bufferBytes {
		if !started {
			started = b.Video > 0
			continue
		}
		at := s.timestamps[i] - 1 - s.positionDelta(i)
		if b.Video != 0 {
			tracker.end(at)
		} else {
			tracker.begin(at)
		}
	}
	return tracker.finish(math.Max(s.sessionEnd(), 0))
}

// ShortcutTime returns the "sct" header, or 0 if the capture had none.
func (s *OverlaySession) ShortcutTime() float64 { return s.shortcutTime }

// PlayerVersion returns the player version reported in the first tick.
func (s *OverlaySession) PlayerVersion() string { return s.playerVersion }

// Device returns the device identifier (ESN) reported in the first tick.
func (s *OverlaySession) Device() string { return s.device }

// Client returns the parsed user agent reported in the first tick.
func (s *OverlaySession) Client() Client { return s.client }

// Repaired reports whether the document needed its trailing record closed.
func (s *OverlaySession) Repaired() bool { return s.repaired }

// BufferStalls returns the stalls derived from an empty video buffer.
func (s *OverlaySession) BufferStalls() []Stall { return s.bufferStalls }

func (s *OverlaySession) BufferingBitrates() []float64 { return s.bufferingBitrates }
func (s *OverlaySession) PlayingBitrates() []float64 { return s.playingBitrates }
func (s *OverlaySession) BufferBytes() []AV[int64] { return s.bufferBytes }
func (s *OverlaySession) BufferSeconds() []AV[float64] { return s.bufferSeconds }
func (s *OverlaySession) Throughputs() []float64 { return s.throughputs }
func (s *OverlaySession) RenderingStates() []string { return s.renderingStates }

func (s *OverlaySession) BufferingBitrateAt(t float64) (float64, bool) {
	return timeseries.At(s.index, s.bufferingBitrates, t)
}

func (s *OverlaySession) PlayingBitrateAt(t float64) (float64, bool) {
	return timeseries.At(s.index, s.playingBitrates, t)
}

func (s *OverlaySession) BufferBytesAt(t float64) (AV[int64], bool) {
	return timeseries.At(s.index, s.bufferBytes, t)
}

func (s *OverlaySession) BufferSecondsAt(t float64) (AV[float64], bool) {
	return timeseries.At(s.index, s.bufferSeconds, t)
}

func (s *OverlaySession) ThroughputAt(t float64) (float64, bool) {
	return timeseries.At(s.index, s.throughputs, t)
}

func (s *OverlaySession) RenderingStateAt(t float64) (string, bool) {
	return timeseries.At(s.index, s.renderingStates, t)
}
