package session

import "fmt"

// Format identifies a capture wire format.
type Format string

const (
	// FormatElement is the HTML5 video element polling capture (500ms ticks,
	// interleaved media-event ticks).
	FormatElement Format = "element"

	// FormatOverlay is the player diagnostics overlay capture (1000ms ticks).
	FormatOverlay Format = "overlay"
)

// ParseFormat accepts a format name or the single-letter session code used
// in capture filenames ("y" element, "n" overlay).
func ParseFormat(s string) (Format, error) {
	switch s {
	case "element", "y":
		return FormatElement, nil
	case "overlay", "n":
		return FormatOverlay, nil
	}
	return "", fmt.Errorf("unknown capture format %q", s)
}

// EventCode is an HTML5 media event as numbered by the capture extension.
type EventCode int

// Media event codes emitted in the element format's EVE field.
const (
	EventAbort          EventCode = 1
	EventCanPlay        EventCode = 2
	EventCanPlayThrough EventCode = 3
	EventDurationChange EventCode = 4
	EventEmptied        EventCode = 5
	EventEnded          EventCode = 6
	EventError          EventCode = 7
	EventLoadedData     EventCode = 8
	EventLoadedMetadata EventCode = 9
	EventLoadStart      EventCode = 10
	EventPause          EventCode = 11
	EventPlay           EventCode = 12
	EventPlaying        EventCode = 13
	EventProgress       EventCode = 14
	EventRateChange     EventCode = 15
	EventSeeked         EventCode = 16
	EventSeeking        EventCode = 17
	EventStalled        EventCode = 18
	EventSuspend        EventCode = 19
	EventTimeUpdate     EventCode = 20
	EventVolumeChange   EventCode = 21
	EventWaiting        EventCode = 22
)

var eventNames = map[EventCode]string{
	EventAbort:          "abort",
	EventCanPlay:        "canplay",
	EventCanPlayThrough: "canplaythrough",
	EventDurationChange: "durationchange",
	EventEmptied:        "emptied",
	EventEnded:          "ended",
	EventError:          "error",
	EventLoadedData:     "loadeddata",
	EventLoadedMetadata: "loadedmetadata",
	EventLoadStart:      "loadstart",
	EventPause:          "pause",
	EventPlay:           "play",
	EventPlaying:        "playing",
	EventProgress:       "progress",
	EventRateChange:     "ratechange",
	EventSeeked:         "seeked",
	EventSeeking:        "seeking",
	EventStalled:        "stalled",
	EventSuspend:        "suspend",
	EventTimeUpdate:     "timeupdate",
	EventVolumeChange:   "volumechange",
	EventWaiting:        "waiting",
}

func (e EventCode) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ReadyState values of HTMLMediaElement.readyState.
const (
	HaveNothing     = 0
	HaveMetadata    = 1
	HaveCurrentData = 2
	HaveFutureData  = 3
	HaveEnoughData  = 4
)

// SignalSchema carries everything that differs between the two formats.
type SignalSchema struct {
	Format Format

	// Granularity is the resampling bucket width in milliseconds.
	Granularity float64

	// EventKey marks discrete-event ticks (element format only). A tick
	// carrying it is routed to the event stream instead of the signals.
	EventKey string

	// Event meanings for the element format.
	JoinEvent  EventCode
	StallEvent EventCode
	AbortEvent EventCode

	// AbortWindow bounds how soon after start an abort counts as an
	// immediately replaced video element.
	AbortWindow float64

	// PlayingState is the overlay rendering state that marks join.
	PlayingState string

	// StallReadyState is the overlay readyState that marks a stall.
	StallReadyState int

	// RepairSuffix closes a truncated trailing record; empty disables repair.
	RepairSuffix string
}

// ElementSchema describes the HTML5 element capture.
var ElementSchema = SignalSchema{
	Format:      FormatElement,
	Granularity: 500,
	EventKey:    "EVE",
	JoinEvent:   EventPlaying,
	StallEvent:  EventWaiting,
	AbortEvent:  EventAbort,
	AbortWindow: 20,
}

// OverlaySchema describes the player overlay capture.
var OverlaySchema = SignalSchema{
	Format:          FormatOverlay,
	Granularity:     1000,
	PlayingState:    "Playing",
	StallReadyState: HaveCurrentData,
	RepairSuffix:    `"}]}`,
}

// SchemaFor returns the schema of a format.
func SchemaFor(f Format) (SignalSchema, error) {
	switch f {
	case FormatElement:
		return ElementSchema, nil
	case FormatOverlay:
		return OverlaySchema, nil
	}
	return SignalSchema{}, fmt.Errorf("unknown capture format %q", f)
}
