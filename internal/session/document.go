package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Top-level keys of a capture document.
const (
	keyStart        = "st"
	keyEnd          = "et"
	keyMovieID      = "mid"
	keyTicks        = "vals"
	keyVersion      = "v"
	keyShortcutTime = "sct"
	keyTimestamp    = "ts"
)

// Document is a decoded capture file: header bounds plus the ordered ticks.
type Document struct {
	Start   float64
	End     float64
	MovieID string

	// Version is the capture extension version; HasVersion distinguishes a
	// missing header from an empty one because buffer-range padding depends on it.
	Version    string
	HasVersion bool

	// ShortcutTime is the overlay capture's "sct" header (0 if absent).
	ShortcutTime float64

	Ticks []RawTick

	// Repaired is set when the document only decoded after appending the
	// schema's repair suffix.
	Repaired bool
}

// DecodeDocument parses a capture document.
//
// Missing or non-numeric bounds, a missing movie id, or a missing/non-array
// "vals" are fatal. When the schema allows it, a truncated trailing record is
// repaired by appending a closing fragment before giving up.
func DecodeDocument(data []byte, schema SignalSchema) (*Document, error) {
	var top map[string]json.RawMessage
	repaired := false
	if err := json.Unmarshal(data, &top); err != nil {
		if schema.RepairSuffix == "" {
			return nil, &ParseError{Err: err}
		}
		fixed := make([]byte, 0, len(data)+len(schema.RepairSuffix))
		fixed = append(fixed, bytes.TrimRight(data, " \t\r\n")...)
		fixed = append(fixed, schema.RepairSuffix...)
		top = nil
		if err2 := json.Unmarshal(fixed, &top); err2 != nil {
			return nil, &ParseError{Err: err}
		}
		repaired = true
	}
	if top == nil {
		return nil, &ParseError{Err: errors.New("document is not a JSON object")}
	}

	doc := &Document{Repaired: repaired}
	var err error
	if doc.Start, err = headerNumber(top, keyStart); err != nil {
		return nil, err
	}
	if doc.End, err = headerNumber(top, keyEnd); err != nil {
		return nil, err
	}

	mid, ok := top[keyMovieID]
	if !ok {
		return nil, fieldError(keyMovieID, errors.New("missing"))
	}
	doc.MovieID = scalarText(mid)

	if raw, ok := top[keyVersion]; ok && !isNull(raw) {
		doc.Version = scalarText(raw)
		doc.HasVersion = true
	}
	if raw, ok := top[keyShortcutTime]; ok {
		if v, err := parseFloat(scalarText(raw)); err == nil {
			doc.ShortcutTime = v
		}
	}

	vals, ok := top[keyTicks]
	if !ok || isNull(vals) {
		return nil, fieldError(keyTicks, errors.New("missing"))
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(vals, &raws); err != nil {
		return nil, fieldError(keyTicks, fmt.Errorf("not an array: %w", err))
	}
	doc.Ticks = make([]RawTick, 0, len(raws))
	for i, r := range raws {
		var tick RawTick
		if err := json.Unmarshal(r, &tick); err != nil || tick == nil {
			return nil, fieldError(fmt.Sprintf("%s[%d]", keyTicks, i), errors.New("record is not an object"))
		}
		doc.Ticks = append(doc.Ticks, tick)
	}
	return doc, nil
}

func headerNumber(top map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := top[key]
	if !ok {
		return 0, fieldError(key, errors.New("missing"))
	}
	v, err := parseFloat(scalarText(raw))
	if err != nil {
		return 0, fieldError(key, fmt.Errorf("not numeric: %w", err))
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
