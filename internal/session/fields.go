package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value parsers shared by the element and overlay extractors. Each receives
// the trimmed field text and returns an error when it cannot be parsed.

func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func parseInt64(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

// parseFloat rejects NaN and infinities; strconv accepts their spellings.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %q", s)
	}
	return f, nil
}

func parseString(s string) (string, error) {
	return s, nil
}

// bufferRangeDelimiter separates {start,end} pairs inside a BUF value.
const bufferRangeDelimiter = "},{"

// parseBufferRanges decodes a BUF value such as "[{s:0,e:12.5},{s:13,e:20}]".
//
// The capture wraps the list in format-specific padding: versioned captures
// carry two characters on each side, legacy captures omit the closing
// bracket and carry one trailing character. Each bound keeps a two-character
// label prefix ("s:", "e:").
func parseBufferRanges(versioned bool) func(string) ([]BufferInterval, error) {
	trailing := 1
	if versioned {
		trailing = 2
	}
	return func(s string) ([]BufferInterval, error) {
		if len(s) < 2+trailing {
			return nil, errors.New("empty buffer list")
		}
		body := s[2 : len(s)-trailing]
		if body == "" {
			return nil, errors.New("empty buffer list")
		}
		parts := strings.Split(body, bufferRangeDelimiter)
		ranges := make([]BufferInterval, 0, len(parts))
		for _, part := range parts {
			bounds := strings.Split(part, ",")
			if len(bounds) < 2 || len(bounds[0]) < 2 || len(bounds[1]) < 2 {
				return nil, fmt.Errorf("bad range %q", part)
			}
			start, err := parseFloat(bounds[0][2:])
			if err != nil {
				return nil, err
			}
			end, err := parseFloat(bounds[1][2:])
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, BufferInterval{Start: start, End: end})
		}
		return ranges, nil
	}
}

// splitAV splits an "audio / video" value.
func splitAV(s string) (audio, video string, err error) {
	a, v, ok := strings.Cut(s, "/")
	if !ok {
		return "", "", fmt.Errorf("missing a/v separator in %q", s)
	}
	return strings.TrimSpace(a), strings.TrimSpace(v), nil
}

// parseBitrateSum decodes "96 / 910" into the combined 1006. An unknown
// bitrate ("?") is reported as 0 rather than as a parse failure.
func parseBitrateSum(s string) (float64, error) {
	if s == "?" {
		return 0, nil
	}
	a, v, err := splitAV(s)
	if err != nil {
		return 0, err
	}
	if i := strings.IndexByte(v, '('); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	af, err := parseFloat(a)
	if err != nil {
		return 0, err
	}
	vf, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	return af + vf, nil
}

func parseAVInt(s string) (AV[int64], error) {
	a, v, err := splitAV(s)
	if err != nil {
		return AV[int64]{}, err
	}
	ai, err := parseInt64(a)
	if err != nil {
		return AV[int64]{}, err
	}
	vi, err := parseInt64(v)
	if err != nil {
		return AV[int64]{}, err
	}
	return AV[int64]{Audio: ai, Video: vi}, nil
}

func parseAVFloat(s string) (AV[float64], error) {
	a, v, err := splitAV(s)
	if err != nil {
		return AV[float64]{}, err
	}
	af, err := parseFloat(a)
	if err != nil {
		return AV[float64]{}, err
	}
	vf, err := parseFloat(v)
	if err != nil {
		return AV[float64]{}, err
	}
	return AV[float64]{Audio: af, Video: vf}, nil
}

// parseResolution decodes "1280x720" (or the older "1280/720").
func parseResolution(s string) (Resolution, error) {
	sep := "x"
	if !strings.Contains(s, sep) {
		sep = "/"
	}
	w, h, ok := strings.Cut(s, sep)
	if !ok {
		return Resolution{}, fmt.Errorf("no resolution separator in %q", s)
	}
	wi, err := parseInt(strings.TrimSpace(w))
	if err != nil {
		return Resolution{}, err
	}
	hi, err := parseInt(strings.TrimSpace(h))
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Width: wi, Height: hi}, nil
}

// resolutionFromBitrate extracts the "(WIDTHxHEIGHT)" suffix of a playing
// bitrate value such as "96 / 910 (853x480)".
func resolutionFromBitrate(s string) (Resolution, error) {
	open := strings.IndexByte(s, '(')
	closing := strings.IndexByte(s, ')')
	if open < 0 || closing <= open {
		return Resolution{}, fmt.Errorf("no resolution in %q", s)
	}
	return parseResolution(s[open+1 : closing])
}

// parseDiagnosticReadyState finds "readyState=N" in a comma-separated
// diagnostics string.
func parseDiagnosticReadyState(s string) (int, error) {
	for _, el := range strings.Split(s, ",") {
		el = strings.TrimSpace(el)
		if !strings.HasPrefix(el, "readyState") {
			continue
		}
		_, v, ok := strings.Cut(el, "=")
		if !ok {
			return 0, fmt.Errorf("readyState without value in %q", s)
		}
		return parseInt(strings.TrimSpace(v))
	}
	return 0, errors.New("no readyState in diagnostics")
}
