package session

import (
	"errors"
	"fmt"
)

// ErrUnparsable is the fatal tier: the document cannot produce a session.
// Every construction failure matches it with errors.Is.
var ErrUnparsable = errors.New("unparsable session")

// ErrMalformedField is the recoverable tier: a tick carries a signal that
// cannot be parsed. It never escapes construction; it is handed to the
// IssueRecorder and the signal carries its previous value forward.
var ErrMalformedField = errors.New("malformed field")

// errAbsent marks a signal the tick does not carry.
var errAbsent = errors.New("field absent")

// ParseError describes why a session could not be constructed.
type ParseError struct {
	// Path is the source file, if the document was read from disk.
	Path string

	// Field names the offending top-level field ("vals", "st", "vals[3].ts").
	// Empty when the document itself is not valid JSON.
	Field string

	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	var where string
	switch {
	case e.Path != "" && e.Field != "":
		where = fmt.Sprintf("%s: %s", e.Path, e.Field)
	case e.Path != "":
		where = e.Path
	case e.Field != "":
		where = e.Field
	}
	if where == "" {
		return fmt.Sprintf("%v: %v", ErrUnparsable, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrUnparsable, where, e.Err)
}

// Unwrap exposes both the fatal sentinel and the original cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrUnparsable, e.Err}
}

func fieldError(field string, err error) *ParseError {
	return &ParseError{Field: field, Err: err}
}

// malformed wraps a parse failure for one signal.
func malformed(signal, raw string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s=%q", ErrMalformedField, signal, raw)
	}
	return fmt.Errorf("%w: %s=%q: %v", ErrMalformedField, signal, raw, err)
}
