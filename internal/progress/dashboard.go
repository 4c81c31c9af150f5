package progress

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunKind distinguishes a dedup run from a merge run for the header label.
type RunKind int

const (
	KindDedup RunKind = iota
	KindMerge
)

func (k RunKind) String() string {
	if k == KindMerge {
		return "merge"
	}
	return "dedup"
}

// Status is the dashboard's lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusStopped
	StatusCompleted
)

// LogEntry is one line in the dashboard's rolling log tail.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// EventMsg wraps a BandEvent as a bubbletea message, sent by a running
// dedup/merge job through the Dashboard's Program.Send.
type EventMsg BandEvent

// LogMsg appends one log line to the dashboard, sent the same way.
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg marks the run finished, successfully or not.
type DoneMsg struct{ Err error }

// Dashboard is the bubbletea model driving a live dedup/merge progress view.
type Dashboard struct {
	width, height int

	kind   RunKind
	basename string
	status Status
	err    error

	stats     *Stats
	statsView *StatsView
	bar       *Bar
	spinner   *Spinner

	logs    []LogEntry
	maxLogs int
}

// NewDashboard returns a Dashboard for a run over basename.
func NewDashboard(kind RunKind, basename string, totalBands int) *Dashboard {
	stats := NewStats()
	stats.SetTotalBands(totalBands)
	return &Dashboard{
		width:     80,
		height:    24,
		kind:      kind,
		basename:  basename,
		status:    StatusRunning,
		stats:     stats,
		statsView: NewStatsView(44),
		bar:       NewBar(70),
		spinner:   NewSpinner("waiting for first band"),
		maxLogs:   50,
	}
}

func (d *Dashboard) addLog(level, message string) {
	d.logs = append(d.logs, LogEntry{Time: time.Now(), Level: level, Message: message})
	if len(d.logs) > d.maxLogs {
		d.logs = d.logs[len(d.logs)-d.maxLogs:]
	}
}

// TickMsg drives the spinner animation.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Init starts the spinner tick loop and enters the alt screen.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

// Update handles bubbletea messages: key presses, resize, ticks, and the
// band/log/done events pushed in from the running job.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.statsView.SetWidth(d.width/2 - 4)
		d.bar.SetWidth(d.width - 4)

	case TickMsg:
		d.spinner.Tick()
		snap := d.stats.Snapshot()
		d.bar.SetProgress(snap.Fraction())
		return d, tickCmd()

	case EventMsg:
		d.stats.Record(BandEvent(msg))
		d.addLog("INFO", fmt.Sprintf("band %d: %d active, %d detected (%.1f%%)",
			msg.Band, msg.NumActiveAfter, msg.NumDetected, msg.DetectionRatio*100))

	case LogMsg:
		d.addLog(msg.Level, msg.Message)

	case DoneMsg:
		d.err = msg.Err
		d.spinner.Stop()
		if msg.Err != nil {
			d.status = StatusStopped
			d.addLog("ERROR", msg.Err.Error())
		} else {
			d.status = StatusCompleted
			d.addLog("INFO", "run completed")
		}
	}

	return d, nil
}

// View renders the full dashboard.
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(d.renderHeader())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, d.renderStats(), d.renderLogs()))
	b.WriteString("\n")
	b.WriteString(PanelStyle.Width(d.width - 4).Render(d.bar.RenderWithLabel()))
	b.WriteString("\n")
	b.WriteString(d.renderFooter())
	return b.String()
}

func (d *Dashboard) renderHeader() string {
	title := TitleStyle.Render(fmt.Sprintf("⚡ doubri %s", d.kind))
	var statusText string
	switch d.status {
	case StatusRunning:
		statusText = RunningStyle.Render("● " + d.spinner.Render())
	case StatusStopped:
		statusText = StoppedStyle.Render("■ STOPPED")
	case StatusCompleted:
		statusText = CompletedStyle.Render("✓ COMPLETED")
	}
	return HeaderStyle.Width(d.width).Render(title + "  " + statusText + "  " + InfoStyle.Render(d.basename))
}

func (d *Dashboard) renderStats() string {
	return d.statsView.Render(d.stats.Snapshot())
}

func (d *Dashboard) renderLogs() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("📜 Log"))
	b.WriteString("\n\n")
	start := 0
	if len(d.logs) > 8 {
		start = len(d.logs) - 8
	}
	for _, entry := range d.logs[start:] {
		line := fmt.Sprintf("%s [%s] %s", entry.Time.Format("15:04:05"), entry.Level, entry.Message)
		if entry.Level == "ERROR" {
			b.WriteString(ErrorStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return LogPanelStyle.Width(d.width/2 - 4).Render(b.String())
}

func (d *Dashboard) renderFooter() string {
	return FooterStyle.Render(RenderHelp("q", "quit"))
}
