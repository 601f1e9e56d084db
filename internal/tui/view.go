package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-playback-qoe/internal/stats"
)

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderDashboard() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderProgress())

	if m.progress != nil && m.progress.Batch != nil {
		sections = append(sections, m.renderHealth())
		if m.progress.Batch.Sessions > 0 {
			sections = append(sections, m.renderQoE())
		}
		if len(m.progress.Batch.RecentFailures) > 0 {
			sections = append(sections, m.renderFailures())
		}
		if m.showIssues {
			sections = append(sections, m.renderIssues())
		}
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" playback-qoe │ %s │ Files: %d/%d │ Elapsed: %s ",
		GetHealthLabel(m.FailureRate()),
		m.Processed(),
		m.Discovered(),
		stats.FormatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Progress Section
// =============================================================================

func (m Model) renderProgress() string {
	fraction := m.Fraction()

	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	progressBar := RenderProgressBar(fraction, barWidth)

	var status string
	switch {
	case m.progress == nil:
		status = statusInfo.Render("Discovering captures...")
	case m.Done():
		status = statusOK.Render(fmt.Sprintf("✓ Batch complete: %d files", m.Processed()))
	default:
		status = statusInfo.Render(fmt.Sprintf("Parsing... %d/%d", m.Processed(), m.Discovered()))
	}

	rows := []string{
		sectionHeaderStyle.Render("Batch Progress"),
		progressBar,
		status,
	}
	if m.progress != nil {
		r := m.progress.Rate
		rows = append(rows, renderRateRow("Throughput", r.Rate10s, r.Overall))
		if !m.Done() && m.progress.ETA > 0 {
			rows = append(rows, RenderKeyValue("ETA", stats.FormatDuration(m.progress.ETA)))
		}
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRateRow(label string, recent, overall float64) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Width(12).Render(stats.FormatRate(recent)),
		mutedStyle.Render(" (overall "),
		valueStyle.Render(stats.FormatRate(overall)),
		mutedStyle.Render(")"),
	)
}

// =============================================================================
// Playback Health
// =============================================================================

func (m Model) renderHealth() string {
	b := m.progress.Batch

	var joinedRatio, stalledRatio float64
	if b.Sessions > 0 {
		joinedRatio = float64(b.Joined) / float64(b.Sessions)
		stalledRatio = float64(b.Stalled) / float64(b.Sessions)
	}

	rows := []string{
		sectionHeaderStyle.Render("Playback Health"),
		renderCountRow("Sessions", b.Sessions, "", valueStyle),
		renderCountRow("Joined", b.Joined, formatPercent(joinedRatio), GetJoinedStyle(joinedRatio)),
		renderCountRow("With Stalls", b.Stalled, formatPercent(stalledRatio), valueStyle),
	}
	if b.Trimmed > 0 {
		rows = append(rows, renderCountRow("Aborted Starts", b.Trimmed, "", valueWarnStyle))
	}
	rows = append(rows,
		renderCountRow("Malformed Fields", b.Issues, "", valueStyle),
		renderCountRow("Skipped Files", b.Failures, formatPercent(m.FailureRate()), GetFailureRateStyle(m.FailureRate())),
	)

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderCountRow(label string, n int, share string, style lipgloss.Style) string {
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		labelWideStyle.Render(label+":"),
		style.Width(10).Render(stats.FormatNumber(int64(n))),
	)
	if share != "" {
		row = lipgloss.JoinHorizontal(lipgloss.Left, row, mutedStyle.Render(" ("+share+")"))
	}
	return row
}

// =============================================================================
// QoE Quantiles
// =============================================================================

func (m Model) renderQoE() string {
	metrics := m.progress.Batch.Metrics
	if len(metrics) == 0 {
		return ""
	}

	var header strings.Builder
	fmt.Fprintf(&header, "%-18s %7s %9s", "Metric", "Count", "Mean")
	for _, q := range metrics[0].Quantiles {
		fmt.Fprintf(&header, " %9s", stats.QuantileLabel(q.Q))
	}

	rows := []string{
		sectionHeaderStyle.Render("QoE Distribution"),
		tableHeaderStyle.Render(header.String()),
	}
	for _, ms := range metrics {
		var row strings.Builder
		fmt.Fprintf(&row, "%-18s %7d %9.1f", ms.Name, ms.Count, ms.Mean)
		for _, q := range ms.Quantiles {
			fmt.Fprintf(&row, " %9.1f", q.Value)
		}
		rows = append(rows, row.String())
	}
	rows = append(rows, dimStyle.Render("times in ms"))

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Failures and Issues
// =============================================================================

const maxFailureRows = 5

func (m Model) renderFailures() string {
	failures := m.progress.Batch.RecentFailures
	if len(failures) > maxFailureRows {
		failures = failures[len(failures)-maxFailureRows:]
	}

	rows := []string{sectionHeaderStyle.Render("Recent Failures")}
	for _, f := range failures {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			statusError.Render("✗ "),
			valueStyle.Render(filepath.Base(f.Path)),
		))
		rows = append(rows, dimStyle.Render("  "+truncate(f.Error, m.width-8)))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderIssues() string {
	rows := []string{sectionHeaderStyle.Render("Recent Malformed Fields")}
	if len(m.progress.Issues) == 0 {
		rows = append(rows, dimStyle.Render("none"))
	}
	for _, is := range m.progress.Issues {
		line := fmt.Sprintf("%s tick %d %s", filepath.Base(is.Source), is.Tick, is.Signal)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			statusWarning.Render("⚠ "),
			valueStyle.Render(line),
		))
		if is.Detail != "" {
			rows = append(rows, dimStyle.Render("  "+truncate(is.Detail, m.width-8)))
		}
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"q: quit",
		"i: toggle issues",
		"r: refresh",
	}

	right := "Input: " + truncate(m.input, m.width-50)
	if m.metricsAddr != "" {
		right += " │ Metrics: " + m.metricsAddr
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	rightRendered := dimStyle.Render(right)

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(rightRendered) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			rightRendered,
		),
	)
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// formatPercent formats a ratio as a percentage.
func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value*100)
}

// truncate shortens s to limit runes with a trailing "...". Limits under 10
// leave s alone.
func truncate(s string, limit int) string {
	r := []rune(s)
	if limit < 10 || len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
