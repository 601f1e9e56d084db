package stats

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/randomizedcoder/go-playback-qoe/internal/session"
)

// =============================================================================
// Formatting helpers
// =============================================================================

func TestFormatters(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"duration zero", FormatDuration(0), "00:00:00"},
		{"duration sub-second", FormatDuration(500 * time.Millisecond), "00:00:00"},
		{"duration mixed", FormatDuration(2*time.Hour + 30*time.Minute + 45*time.Second), "02:30:45"},
		{"duration past a day", FormatDuration(25 * time.Hour), "25:00:00"},

		{"number small", FormatNumber(999), "999"},
		{"number K", FormatNumber(1500), "1.5K"},
		{"number M", FormatNumber(2_500_000), "2.5M"},
		{"number negative", FormatNumber(-100), "-100"},

		{"bytes", FormatBytes(999), "999 B"},
		{"bytes KB", FormatBytes(1500), "1.50 KB"},
		{"bytes MB", FormatBytes(4_200_000), "4.20 MB"},
		{"bytes GB", FormatBytes(1_000_000_000), "1.00 GB"},

		{"rate slow", FormatRate(0.5), "0.50/s"},
		{"rate", FormatRate(42), "42.0/s"},
		{"rate K", FormatRate(1500), "1.5K/s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestQuantileLabel(t *testing.T) {
	tests := []struct {
		q    float64
		want string
	}{
		{0.25, "P25"},
		{0.5, "P50"},
		{0.75, "P75"},
		{1, "P100"},
	}
	for _, tt := range tests {
		if got := QuantileLabel(tt.q); got != tt.want {
			t.Errorf("QuantileLabel(%v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

// =============================================================================
// Tests: FormatBatchSummary
// =============================================================================

func TestFormatBatchSummary_NilResult(t *testing.T) {
	cfg := SummaryConfig{
		Duration:    5 * time.Minute,
		Discovered:  0,
		MetricsAddr: "0.0.0.0:17092",
	}

	out := FormatBatchSummary(nil, cfg)

	for _, want := range []string{"Batch Summary", "00:05:00", "No sessions were processed"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func sampleResult() *BatchResult {
	agg := NewBatchAggregator([]float64{0.5, 1}, 100)
	agg.Add(SessionSummary{Format: "element", Joined: true, JoinTime: 100, StallCount: 1, StallTime: 1000, Issues: 2})
	agg.Add(SessionSummary{Format: "overlay", Browser: "Chrome", Joined: true, JoinTime: 300})
	for i := 0; i < MaxRecentFailures+3; i++ {
		agg.AddFailure("/data/bad.json", errors.New("unparsable session"))
	}
	return agg.Aggregate()
}

func TestFormatBatchSummary_WithSessions(t *testing.T) {
	cfg := SummaryConfig{
		RunID:       "run-1",
		Input:       "/data",
		Discovered:  25,
		Duration:    10 * time.Second,
		MetricsAddr: "127.0.0.1:17092",
		TopIssues:   []IssueCount{{Signal: "VHE", Count: 2}},
	}

	out := FormatBatchSummary(sampleResult(), cfg)

	wants := []string{
		"Run ID:                 run-1",
		"Files Discovered:       25",
		"Sessions Parsed:        2",
		"Sessions Failed:        23",
		"Joined:               2 (100%)",
		"With Stalls:          1 (50%)",
		"QoE Distribution",
		"P50",
		"P100",
		"join_time",
		"stall_time",
		"Chrome",
		"element",
		"/data/bad.json",
		"... and 3 more",
		"VHE",
		"http://127.0.0.1:17092/metrics",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestFormatBatchSummary_NoErrorsSection(t *testing.T) {
	agg := NewBatchAggregator([]float64{0.5}, 100)
	agg.Add(SessionSummary{Format: "element"})

	out := FormatBatchSummary(agg.Aggregate(), SummaryConfig{Duration: time.Second})
	if strings.Contains(out, "Errors") {
		t.Error("errors section rendered without failures")
	}
	if strings.Contains(out, "Metrics endpoint") {
		t.Error("metrics line rendered without address")
	}
}

// =============================================================================
// Tests: FormatSession
// =============================================================================

func TestFormatSession(t *testing.T) {
	r := &session.Report{
		Format:            session.FormatElement,
		MovieID:           "movie-1",
		StartTime:         1000,
		EndTime:           11000,
		Samples:           3,
		JoinTime:          100,
		Version:           "2.1",
		Trimmed:           true,
		DecodedVideoBytes: []int64{0, 1500},
		Stalls:            []session.Stall{{Start: 2000, End: 3000}},
		BitrateChanges: []session.BitrateChange{
			{TS: 4000, Direction: session.DirectionDown, Previous: 720, New: 360},
		},
	}

	out := FormatSession("/data/s.json", r, 4)

	wants := []string{
		"Session movie-1",
		"File:                   /data/s.json",
		"Duration:               10000 ms",
		"Player Version:         2.1",
		"Decoded Video:          1.50 KB",
		"Aborted Start",
		"Malformed Fields:       4",
		"Join Time:            100 ms",
		"Stall Time:           1000 ms",
		"Bitrate Changes",
		"down",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("session output missing %q\n%s", want, out)
		}
	}
}

func TestFormatSession_Overlay(t *testing.T) {
	client := session.ParseClient("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36")
	r := &session.Report{
		Format:       session.FormatOverlay,
		MovieID:      "80018499",
		Device:       "10.0.0.5",
		Client:       &client,
		BufferStalls: []session.Stall{{Start: 10, End: 20}},
	}

	out := FormatSession("", r, 0)

	for _, want := range []string{"Device:                 10.0.0.5", "Chrome", "Empty Buffer:         1"} {
		if !strings.Contains(out, want) {
			t.Errorf("session output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "File:") || strings.Contains(out, "Bitrate Changes") {
		t.Errorf("unexpected optional lines\n%s", out)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkFormatBatchSummary(b *testing.B) {
	r := sampleResult()
	cfg := SummaryConfig{Duration: time.Minute, Discovered: 100}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = FormatBatchSummary(r, cfg)
	}
}
