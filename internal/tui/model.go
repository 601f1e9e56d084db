package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-playback-qoe/internal/orchestrator"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// ProgressMsg carries a pushed batch snapshot.
type ProgressMsg struct {
	Progress orchestrator.Progress
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	input       string
	metricsAddr string

	// Current state
	progress   *orchestrator.Progress
	startTime  time.Time
	lastUpdate time.Time
	showIssues bool

	// Display options
	width  int
	height int

	source Source

	quitting bool
}

// Source provides batch snapshots. *orchestrator.Orchestrator satisfies it.
type Source interface {
	Progress() orchestrator.Progress
}

// Config holds TUI configuration.
type Config struct {
	Input       string
	MetricsAddr string
	Source      Source
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		input:       cfg.Input,
		metricsAddr: cfg.MetricsAddr,
		source:      cfg.Source,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "i":
			m.showIssues = !m.showIssues
			return m, nil
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.source != nil {
			p := m.source.Progress()
			m.progress = &p
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case ProgressMsg:
		p := msg.Progress
		m.progress = &p
		m.lastUpdate = time.Now()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Discovered returns the number of files in the batch.
func (m Model) Discovered() int {
	if m.progress == nil {
		return 0
	}
	return m.progress.Discovered
}

// Processed returns the number of files parsed or skipped so far.
func (m Model) Processed() int {
	if m.progress == nil || m.progress.Batch == nil {
		return 0
	}
	return m.progress.Batch.Sessions + m.progress.Batch.Failures
}

// Failures returns the number of skipped files.
func (m Model) Failures() int {
	if m.progress == nil || m.progress.Batch == nil {
		return 0
	}
	return m.progress.Batch.Failures
}

// Fraction returns batch progress (0.0 to 1.0).
func (m Model) Fraction() float64 {
	total := m.Discovered()
	if total == 0 {
		return 0
	}
	f := float64(m.Processed()) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}

// FailureRate returns skipped files over processed files.
func (m Model) FailureRate() float64 {
	done := m.Processed()
	if done == 0 {
		return 0
	}
	return float64(m.Failures()) / float64(done)
}

// Done reports whether the batch has finished.
func (m Model) Done() bool {
	return m.progress != nil && m.progress.Done
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendProgress pushes a snapshot to the TUI.
func SendProgress(p *tea.Program, progress orchestrator.Progress) {
	if p != nil {
		p.Send(ProgressMsg{Progress: progress})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
