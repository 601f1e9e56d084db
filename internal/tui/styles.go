// Package tui provides a live terminal dashboard for playback-qoe batches.
//
// The dashboard uses Bubble Tea for the update loop and Lipgloss for styling.
// It shows batch progress, playback health, running QoE quantiles and the
// most recent skipped files and malformed fields.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorAccent = lipgloss.Color("#0EA5A4") // teal
	colorHeader = lipgloss.Color("#38BDF8") // sky

	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#EAB308")
	colorError   = lipgloss.Color("#F43F5E")
	colorInfo    = lipgloss.Color("#60A5FA")

	colorText   = lipgloss.Color("#F1F5F9")
	colorMuted  = lipgloss.Color("#94A3B8")
	colorDim    = lipgloss.Color("#64748B")
	colorBorder = lipgloss.Color("#334155")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func bold(c lipgloss.Color) lipgloss.Style {
	return fg(c).Bold(true)
}

var (
	mutedStyle = fg(colorMuted)
	dimStyle   = fg(colorDim)

	statusOK      = bold(colorSuccess)
	statusWarning = bold(colorWarning)
	statusError   = bold(colorError)
	statusInfo    = bold(colorInfo)

	valueStyle     = bold(colorText)
	valueGoodStyle = bold(colorSuccess)
	valueWarnStyle = bold(colorWarning)
	valueBadStyle  = bold(colorError)

	labelStyle       = fg(colorMuted).Width(20)
	labelWideStyle   = fg(colorMuted).Width(25)
	tableHeaderStyle = bold(colorHeader)
	footerStyle      = fg(colorMuted).MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = bold(colorText).
			Background(colorAccent).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = bold(colorHeader).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder).
				MarginTop(1)

	barFilledStyle = fg(colorAccent)
	barEmptyStyle  = fg(colorBorder)
)

// =============================================================================
// Indicators
// =============================================================================

// HealthStatus summarizes how many capture files fail to parse.
type HealthStatus int

const (
	HealthOK HealthStatus = iota
	HealthDegraded
	HealthSeverelyDegraded
)

// GetHealthStatus returns the status for a failure rate. More than one file
// in ten skipped is severe.
func GetHealthStatus(failureRate float64) HealthStatus {
	switch {
	case failureRate > 0.10:
		return HealthSeverelyDegraded
	case failureRate > 0:
		return HealthDegraded
	default:
		return HealthOK
	}
}

// GetHealthLabel returns a styled label for a failure rate.
func GetHealthLabel(failureRate float64) string {
	switch GetHealthStatus(failureRate) {
	case HealthSeverelyDegraded:
		return statusError.Render("● Captures (many unparsable)")
	case HealthDegraded:
		return statusWarning.Render("● Captures (some unparsable)")
	default:
		return statusOK.Render("● Captures")
	}
}

// GetJoinedStyle returns a style for the share of sessions that started
// playing.
func GetJoinedStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 0.95:
		return valueGoodStyle
	case ratio >= 0.8:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// GetFailureRateStyle returns a style for the share of skipped files.
func GetFailureRateStyle(failureRate float64) lipgloss.Style {
	switch {
	case failureRate == 0:
		return valueGoodStyle
	case failureRate < 0.01:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// =============================================================================
// Render helpers
// =============================================================================

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// RenderProgressBar renders a bar at least 10 cells wide followed by the
// percentage.
func RenderProgressBar(progress float64, width int) string {
	width = max(width, 10)
	filled := min(max(int(progress*float64(width)), 0), width)

	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled)) +
		valueStyle.Render(fmt.Sprintf(" %3.0f%%", progress*100))
}
