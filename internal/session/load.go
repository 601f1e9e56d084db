package session

import (
	"errors"
	"fmt"
	"os"
)

// Parse builds a session of the given format from raw document bytes.
func Parse(data []byte, format Format, opts ...Option) (Session, error) {
	schema, err := SchemaFor(format)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(data, schema)
	if err != nil {
		return nil, err
	}
	var s Session
	switch format {
	case FormatElement:
		s, err = NewElementSession(doc, opts...)
	default:
		s, err = NewOverlaySession(doc, opts...)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Open reads and builds the session stored at path. Construction failures
// are *ParseError values carrying path and match ErrUnparsable.
func Open(path string, format Format, opts ...Option) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}
	s, err := Parse(data, format, opts...)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return s, nil
}

// OpenElement is Open for element captures.
func OpenElement(path string, opts ...Option) (*ElementSession, error) {
	s, err := Open(path, FormatElement, opts...)
	if err != nil {
		return nil, err
	}
	return s.(*ElementSession), nil
}

// OpenOverlay is Open for overlay captures.
func OpenOverlay(path string, opts ...Option) (*OverlaySession, error) {
	s, err := Open(path, FormatOverlay, opts...)
	if err != nil {
		return nil, err
	}
	return s.(*OverlaySession), nil
}
