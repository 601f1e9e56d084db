package session

import (
	"bytes"
	"encoding/json"
)

// RawTick is one captured moment: short-code keys mapped to JSON scalars.
// Keys vary from tick to tick; only "ts" is guaranteed.
type RawTick map[string]json.RawMessage

// Field is a single tick value rendered as text.
type Field struct {
	Text    string
	Present bool
}

// Field looks up key and renders it as text.
//
// JSON strings are unquoted, numbers and booleans keep their literal text,
// and null renders as an empty (present) value so that it fails parsing
// rather than being mistaken for an absent signal.
func (t RawTick) Field(key string) Field {
	raw, ok := t[key]
	if !ok {
		return Field{}
	}
	return Field{Text: scalarText(raw), Present: true}
}

// Has reports whether the tick carries key at all.
func (t RawTick) Has(key string) bool {
	_, ok := t[key]
	return ok
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// timestamp parses the mandatory tick timestamp.
func (t RawTick) timestamp() (float64, error) {
	f := t.Field(keyTimestamp)
	if !f.Present {
		return 0, errAbsent
	}
	v, err := parseFloat(f.Text)
	if err != nil {
		return 0, err
	}
	return v, nil
}
