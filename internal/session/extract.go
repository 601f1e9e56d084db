package session

import (
	"errors"
	"strings"
)

// IssueRecorder absorbs recoverable field-level conditions.
//
// Implementations must not fail; the signal has already fallen back to its
// carried-forward value by the time RecordIssue is called.
type IssueRecorder interface {
	RecordIssue(tick int, signal string, err error)
}

type discardIssues struct{}

func (discardIssues) RecordIssue(int, string, error) {}

// Extractor parses one signal out of a tick.
//
// Parse returns errAbsent when the tick does not carry the signal and an
// ErrMalformedField-wrapped error when it carries something unparsable.
// Either way the owning Series falls back to the previous value or Default.
type Extractor[T any] struct {
	Signal  string
	Default T
	Parse   func(RawTick) (T, error)
}

// FieldExtractor builds an extractor reading a single key with parse.
func FieldExtractor[T any](key string, def T, parse func(string) (T, error)) Extractor[T] {
	return Extractor[T]{
		Signal:  key,
		Default: def,
		Parse: func(t RawTick) (T, error) {
			var zero T
			f := t.Field(key)
			if !f.Present {
				return zero, errAbsent
			}
			v, err := parse(strings.TrimSpace(f.Text))
			if err != nil {
				return zero, malformed(key, f.Text, err)
			}
			return v, nil
		},
	}
}

// Series is an append-only signal sequence with carry-forward imputation.
type Series[T any] struct {
	Extractor[T]
	Values []T
}

// NewSeries creates an empty series for ex.
func NewSeries[T any](ex Extractor[T], capacity int) *Series[T] {
	return &Series[T]{Extractor: ex, Values: make([]T, 0, capacity)}
}

// Next extracts the signal from tick and appends it, falling back to the
// previous value (or Default on the first tick) when absent or malformed.
func (s *Series[T]) Next(tick RawTick, index int, rec IssueRecorder) {
	v, err := s.Parse(tick)
	if err != nil {
		if !errors.Is(err, errAbsent) {
			rec.RecordIssue(index, s.Signal, err)
		}
		v = s.Last()
	}
	s.Values = append(s.Values, v)
}

// Last returns the most recent value, or Default if the series is empty.
func (s *Series[T]) Last() T {
	if len(s.Values) == 0 {
		return s.Default
	}
	return s.Values[len(s.Values)-1]
}

// Len returns the number of samples.
func (s *Series[T]) Len() int {
	return len(s.Values)
}
