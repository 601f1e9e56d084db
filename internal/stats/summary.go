// This file implements the batch and session summary formatters which display
// QoE statistics at the end of a run.

package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/randomizedcoder/go-playback-qoe/internal/session"
)

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// RunID identifies the batch in logs and metrics
	RunID string

	// Input is the scanned directory
	Input string

	// Discovered is the number of files matched by the filename filter
	Discovered int

	// Duration is the total run duration
	Duration time.Duration

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string

	// TopIssues lists the signals with the most malformed fields
	TopIssues []IssueCount
}

// IssueCount is a malformed-field count for one signal.
type IssueCount struct {
	Signal string `json:"signal"`
	Count  int    `json:"count"`
}

func section(b *strings.Builder, title string) {
	b.WriteString(lightRule)
	fmt.Fprintf(b, "%s\n", centered(title))
	b.WriteString(lightRule)
	b.WriteString("\n")
}

func centered(title string) string {
	pad := (79 - len([]rune(title))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + title
}

// FormatBatchSummary formats a batch result for display at program exit.
//
// The summary includes:
// - Run information and session counts
// - Quantiles of each QoE metric
// - Per-format and per-browser breakdown
// - Recent failures and the noisiest signals
func FormatBatchSummary(r *BatchResult, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(heavyRule)
	fmt.Fprintf(&b, "%s\n", centered("playback-qoe Batch Summary"))
	b.WriteString(heavyRule)
	b.WriteString("\n")

	if cfg.RunID != "" {
		fmt.Fprintf(&b, "Run ID:                 %s\n", cfg.RunID)
	}
	if cfg.Input != "" {
		fmt.Fprintf(&b, "Input:                  %s\n", cfg.Input)
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Files Discovered:       %d\n", cfg.Discovered)

	if r == nil {
		b.WriteString("\n(No sessions were processed)\n\n")
		b.WriteString(heavyRule)
		return b.String()
	}

	fmt.Fprintf(&b, "Sessions Parsed:        %d\n", r.Sessions)
	fmt.Fprintf(&b, "Sessions Failed:        %d\n", r.Failures)
	if secs := cfg.Duration.Seconds(); secs > 0 {
		fmt.Fprintf(&b, "Throughput:             %s\n", FormatRate(float64(r.Sessions+r.Failures)/secs))
	}
	b.WriteString("\n")

	section(&b, "Playback Health")
	if r.Sessions > 0 {
		fmt.Fprintf(&b, "  Joined:               %d (%d%%)\n", r.Joined, r.Joined*100/r.Sessions)
		fmt.Fprintf(&b, "  With Stalls:          %d (%d%%)\n", r.Stalled, r.Stalled*100/r.Sessions)
	}
	if r.Trimmed > 0 {
		fmt.Fprintf(&b, "  Aborted Starts:       %d\n", r.Trimmed)
	}
	fmt.Fprintf(&b, "  Malformed Fields:     %s\n\n", FormatNumber(int64(r.Issues)))

	if r.Sessions > 0 {
		section(&b, "QoE Distribution")
		writeMetricTable(&b, r.Metrics)
		b.WriteString("\n")
	}

	if len(r.PerFormat) > 0 || len(r.PerBrowser) > 0 {
		section(&b, "Breakdown")
		writeCounts(&b, "Format", r.PerFormat)
		writeCounts(&b, "Browser", r.PerBrowser)
		b.WriteString("\n")
	}

	if len(r.RecentFailures) > 0 || len(cfg.TopIssues) > 0 {
		section(&b, "Errors")
		for _, f := range r.RecentFailures {
			fmt.Fprintf(&b, "  %s\n      %s\n", f.Path, f.Error)
		}
		if len(r.RecentFailures) > 0 && r.Failures > len(r.RecentFailures) {
			fmt.Fprintf(&b, "  ... and %d more\n", r.Failures-len(r.RecentFailures))
		}
		for _, ic := range cfg.TopIssues {
			fmt.Fprintf(&b, "  %-20s %d malformed\n", ic.Signal, ic.Count)
		}
		b.WriteString("\n")
	}

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString(heavyRule)
	return b.String()
}

func writeMetricTable(b *strings.Builder, metrics []MetricStats) {
	if len(metrics) == 0 {
		return
	}
	fmt.Fprintf(b, "  %-18s %8s %10s", "Metric", "Count", "Mean")
	for _, q := range metrics[0].Quantiles {
		fmt.Fprintf(b, " %9s", QuantileLabel(q.Q))
	}
	b.WriteString("\n")
	b.WriteString("  " + strings.Repeat("─", 38+10*len(metrics[0].Quantiles)) + "\n")

	for _, m := range metrics {
		fmt.Fprintf(b, "  %-18s %8d %10.2f", m.Name, m.Count, m.Mean)
		for _, q := range m.Quantiles {
			fmt.Fprintf(b, " %9.2f", q.Value)
		}
		b.WriteString("\n")
	}
}

// QuantileLabel renders 0.5 as "P50" and 1 as "P100".
func QuantileLabel(q float64) string {
	return fmt.Sprintf("P%g", q*100)
}

func writeCounts(b *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "  %s:\n", label)
	for _, k := range keys {
		fmt.Fprintf(b, "    %-24s %d\n", k, counts[k])
	}
}

// FormatSession formats a single session report for the inspect command.
func FormatSession(path string, r *session.Report, issues int) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(heavyRule)
	fmt.Fprintf(&b, "%s\n", centered("Session "+r.MovieID))
	b.WriteString(heavyRule)
	b.WriteString("\n")

	if path != "" {
		fmt.Fprintf(&b, "File:                   %s\n", path)
	}
	fmt.Fprintf(&b, "Format:                 %s\n", r.Format)
	fmt.Fprintf(&b, "Duration:               %.0f ms\n", r.EndTime-r.StartTime)
	fmt.Fprintf(&b, "Samples:                %d\n", r.Samples)
	if r.Version != "" {
		fmt.Fprintf(&b, "Player Version:         %s\n", r.Version)
	}
	if r.PlayerVersion != "" {
		fmt.Fprintf(&b, "Player Version:         %s\n", r.PlayerVersion)
	}
	if r.Device != "" {
		fmt.Fprintf(&b, "Device:                 %s\n", r.Device)
	}
	if r.Client != nil {
		fmt.Fprintf(&b, "Client:                 %s %s on %s\n", r.Client.Browser, r.Client.BrowserVersion, r.Client.OS)
	}
	if n := len(r.DecodedVideoBytes); n > 0 {
		fmt.Fprintf(&b, "Decoded Video:          %s\n", FormatBytes(r.DecodedVideoBytes[n-1]))
	}
	if r.Trimmed {
		b.WriteString("Aborted Start:          trimmed\n")
	}
	if issues > 0 {
		fmt.Fprintf(&b, "Malformed Fields:       %d\n", issues)
	}
	b.WriteString("\n")

	section(&b, "Playback")
	fmt.Fprintf(&b, "  Join Time:            %.0f ms\n", r.JoinTime)
	fmt.Fprintf(&b, "  Stalls:               %d\n", len(r.Stalls))
	var stalled float64
	for _, st := range r.Stalls {
		stalled += st.Duration()
		fmt.Fprintf(&b, "    %10.0f → %10.0f  (%.0f ms)\n", st.Start, st.End, st.Duration())
	}
	if len(r.Stalls) > 0 {
		fmt.Fprintf(&b, "  Stall Time:           %.0f ms\n", stalled)
	}
	if len(r.BufferStalls) > 0 {
		fmt.Fprintf(&b, "  Empty Buffer:         %d\n", len(r.BufferStalls))
	}
	b.WriteString("\n")

	if len(r.BitrateChanges) > 0 {
		section(&b, "Bitrate Changes")
		for _, c := range r.BitrateChanges {
			fmt.Fprintf(&b, "  %10.0f  %-4s %8.0f → %.0f\n", c.TS, c.Direction, c.Previous, c.New)
		}
		b.WriteString("\n")
	}

	b.WriteString(heavyRule)
	return b.String()
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatBytes formats bytes with KB/MB/GB suffixes.
func FormatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// FormatRate formats a rate with appropriate precision.
func FormatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	if rate >= 1 {
		return fmt.Sprintf("%.1f/s", rate)
	}
	return fmt.Sprintf("%.2f/s", rate)
}
