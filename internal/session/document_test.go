package session

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeDocument_Fatal(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{"missing vals", `{"st":0,"et":10,"mid":"m"}`, "vals"},
		{"vals null", `{"st":0,"et":10,"mid":"m","vals":null}`, "vals"},
		{"vals not array", `{"st":0,"et":10,"mid":"m","vals":{}}`, "vals"},
		{"missing st", `{"et":10,"mid":"m","vals":[]}`, "st"},
		{"non-numeric et", `{"st":0,"et":"soon","mid":"m","vals":[]}`, "et"},
		{"NaN st", `{"st":"NaN","et":10,"mid":"m","vals":[]}`, "st"},
		{"infinite et", `{"st":0,"et":"Infinity","mid":"m","vals":[]}`, "et"},
		{"missing mid", `{"st":0,"et":10,"vals":[]}`, "mid"},
		{"record not object", `{"st":0,"et":10,"mid":"m","vals":[1]}`, "vals[0]"},
		{"not json", `st=0`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeDocument([]byte(tt.doc), ElementSchema)
			if doc != nil {
				t.Error("document returned on fatal error")
			}
			if !errors.Is(err, ErrUnparsable) {
				t.Fatalf("err = %v, want ErrUnparsable", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %T, want *ParseError", err)
			}
			if pe.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", pe.Field, tt.wantField)
			}
		})
	}
}

func TestDecodeDocument_Header(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"st":"1000","et":5000,"mid":42,"v":"1.2","vals":[{"ts":1000}]}`), ElementSchema)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if doc.Start != 1000 || doc.End != 5000 {
		t.Errorf("bounds = %v..%v, want 1000..5000", doc.Start, doc.End)
	}
	if doc.MovieID != "42" {
		t.Errorf("MovieID = %q, want 42", doc.MovieID)
	}
	if !doc.HasVersion || doc.Version != "1.2" {
		t.Errorf("Version = %q (%v), want 1.2", doc.Version, doc.HasVersion)
	}
	if len(doc.Ticks) != 1 || doc.Repaired {
		t.Errorf("Ticks = %d, Repaired = %v", len(doc.Ticks), doc.Repaired)
	}
}

func TestDecodeDocument_NullVersionIsLegacy(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"st":0,"et":10,"mid":"m","v":null,"vals":[]}`), ElementSchema)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if doc.HasVersion || doc.Version != "" {
		t.Errorf("Version = %q (%v), want unversioned", doc.Version, doc.HasVersion)
	}
}

func TestDecodeDocument_Repair(t *testing.T) {
	truncated := `{"st":0,"et":3000,"mid":"80018499","vals":[{"ts":0,"RS":"Buffering"},{"ts":1000,"RS":"Playing`

	t.Run("overlay repairs", func(t *testing.T) {
		doc, err := DecodeDocument([]byte(truncated+"\n"), OverlaySchema)
		if err != nil {
			t.Fatalf("DecodeDocument: %v", err)
		}
		if !doc.Repaired {
			t.Error("Repaired = false")
		}
		if len(doc.Ticks) != 2 {
			t.Fatalf("Ticks = %d, want 2", len(doc.Ticks))
		}
		if got := doc.Ticks[1].Field("RS").Text; got != "Playing" {
			t.Errorf("RS = %q, want Playing", got)
		}
	})

	t.Run("element does not repair", func(t *testing.T) {
		_, err := DecodeDocument([]byte(truncated), ElementSchema)
		if !errors.Is(err, ErrUnparsable) {
			t.Errorf("err = %v, want ErrUnparsable", err)
		}
	})

	t.Run("unrepairable", func(t *testing.T) {
		_, err := DecodeDocument([]byte(`{"st":0,"et":`), OverlaySchema)
		if !errors.Is(err, ErrUnparsable) {
			t.Errorf("err = %v, want ErrUnparsable", err)
		}
	})
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Path: "/tmp/a.json", Field: "vals", Err: errors.New("missing")}
	msg := err.Error()
	for _, want := range []string{"unparsable session", "/tmp/a.json", "vals", "missing"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestOpen_SetsPath(t *testing.T) {
	path := writeDoc(t, "broken.json", []byte(`{"st":0,"et":1,"mid":"m"}`))

	_, err := Open(path, FormatElement)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("Path = %q, want %q", pe.Path, path)
	}
	if !errors.Is(err, ErrUnparsable) {
		t.Error("Open error should match ErrUnparsable")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/session.json", FormatOverlay)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnparsable) {
		t.Error("I/O errors are not parse errors")
	}
}

func TestParse_MissingTickTimestamp(t *testing.T) {
	data := elementDoc(t, 0, 10, tk{"ts": 0, "CUT": 1}, tk{"CUT": 2})
	_, err := Parse(data, FormatElement)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Field != "vals[1].ts" {
		t.Errorf("Field = %q, want vals[1].ts", pe.Field)
	}
}
