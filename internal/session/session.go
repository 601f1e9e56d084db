// Package session turns captured playback telemetry into aligned,
// time-indexed series and the QoE events derived from them.
//
// A capture is a JSON document of irregular ticks. Each format (element or
// overlay) is described by a SignalSchema; building a session walks the ticks
// once in file order, extracts every signal with carry-forward imputation,
// and then runs the derivation passes (trimming, join time, stalls, bitrate
// changes). A built session is read-only.
package session

import (
	"github.com/randomizedcoder/go-playback-qoe/internal/timeseries"
)

// Session is the accessor and derivation contract shared by both formats.
//
// Timestamps are relative to StartTime. The *At lookups take wall-clock
// timestamps and return false when the instant falls outside the series.
type Session interface {
	Format() Format
	MovieID() string
	StartTime() float64
	EndTime() float64

	// Len is the number of resampled state samples.
	Len() int

	Timestamps() []float64
	TimestampAt(t float64) (float64, bool)
	Positions() []float64
	PositionAt(t float64) (float64, bool)
	ReadyStates() []int
	ReadyStateAt(t float64) (int, bool)
	Resolutions() []Resolution
	ResolutionAt(t float64) (Resolution, bool)

	JoinTime() float64
	Stalls() []Stall
	BitrateChanges() []BitrateChange

	Report() *Report
}

// BufferInterval is one buffered range in playback-position units.
type BufferInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Resolution is a video frame size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AV is an audio/video value pair.
type AV[T int64 | float64] struct {
	Audio T `json:"audio"`
	Video T `json:"video"`
}

// Stall is a rebuffering interval in relative timestamps.
type Stall struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (s Stall) Duration() float64 {
	return s.End - s.Start
}

// Direction of a bitrate change.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// BitrateChange is a transition between consecutive post-join samples.
type BitrateChange struct {
	TS        float64   `json:"ts"`
	Direction Direction `json:"direction"`
	Previous  float64   `json:"previous"`
	New       float64   `json:"new"`
}

// base holds the state common to both formats.
type base struct {
	schema  SignalSchema
	movieID string
	start   float64
	end     float64
	index   timeseries.Index

	timestamps  []float64
	positions   []float64
	readyStates []int
	resolutions []Resolution

	joinTime float64
	stalls   []Stall
	changes  []BitrateChange
}

func newBase(doc *Document, schema SignalSchema) base {
	return base{
		schema:  schema,
		movieID: doc.MovieID,
		start:   doc.Start,
		end:     doc.End,
		index:   timeseries.NewIndex(doc.Start, schema.Granularity),
	}
}

func (b *base) Format() Format { return b.schema.Format }
func (b *base) MovieID() string { return b.movieID }
func (b *base) StartTime() float64 { return b.start }
func (b *base) EndTime() float64 { return b.end }
func (b *base) Len() int { return len(b.timestamps) }

func (b *base) Timestamps() []float64 { return b.timestamps }
func (b *base) Positions() []float64 { return b.positions }
func (b *base) ReadyStates() []int { return b.readyStates }
func (b *base) Resolutions() []Resolution { return b.resolutions }

func (b *base) TimestampAt(t float64) (float64, bool) {
	return timeseries.At(b.index, b.timestamps, t)
}

func (b *base) PositionAt(t float64) (float64, bool) {
	return timeseries.At(b.index, b.positions, t)
}

func (b *base) ReadyStateAt(t float64) (int, bool) {
	return timeseries.At(b.index, b.readyStates, t)
}

func (b *base) ResolutionAt(t float64) (Resolution, bool) {
	return timeseries.At(b.index, b.resolutions, t)
}

func (b *base) JoinTime() float64 { return b.joinTime }
func (b *base) Stalls() []Stall { return b.stalls }
func (b *base) BitrateChanges() []BitrateChange { return b.changes }

// sessionEnd is the relative instant at which open intervals are closed.
func (b *base) sessionEnd() float64 {
	return b.end - b.start
}
