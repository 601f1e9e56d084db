package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type tk = map[string]any

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func elementDoc(t *testing.T, st, et float64, ticks ...tk) []byte {
	t.Helper()
	if ticks == nil {
		ticks = []tk{}
	}
	return encode(t, map[string]any{"st": st, "et": et, "mid": "movie-1", "v": "2.1", "vals": ticks})
}

func overlayDoc(t *testing.T, st, et float64, ticks ...tk) []byte {
	t.Helper()
	if ticks == nil {
		ticks = []tk{}
	}
	return encode(t, map[string]any{"st": st, "et": et, "mid": "80018499", "sct": 12, "vals": ticks})
}

func buildElement(t *testing.T, data []byte, opts ...Option) *ElementSession {
	t.Helper()
	s, err := Parse(data, FormatElement, opts...)
	if err != nil {
		t.Fatalf("Parse(element): %v", err)
	}
	return s.(*ElementSession)
}

func buildOverlay(t *testing.T, data []byte, opts ...Option) *OverlaySession {
	t.Helper()
	s, err := Parse(data, FormatOverlay, opts...)
	if err != nil {
		t.Fatalf("Parse(overlay): %v", err)
	}
	return s.(*OverlaySession)
}

func writeDoc(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// issueLog collects recoverable conditions for assertions.
type issueLog struct {
	ticks   []int
	signals []string
	errs    []error
}

func (l *issueLog) RecordIssue(tick int, signal string, err error) {
	l.ticks = append(l.ticks, tick)
	l.signals = append(l.signals, signal)
	l.errs = append(l.errs, err)
}

func (l *issueLog) allMalformed(t *testing.T) {
	t.Helper()
	for i, err := range l.errs {
		if !errors.Is(err, ErrMalformedField) {
			t.Errorf("issue %d (%s) = %v, want ErrMalformedField", i, l.signals[i], err)
		}
	}
}
