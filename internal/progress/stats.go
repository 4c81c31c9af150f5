package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// BandEvent reports the outcome of one deduplicated or merged band/split
// sweep, the unit of progress a dedup/merge Run reports after each band.
type BandEvent struct {
	Band            int
	TotalBands      int
	NumItems        uint64
	NumActiveBefore uint64
	NumActiveAfter  uint64
	NumDetected     uint64
	DetectionRatio  float64
	Elapsed         time.Duration
}

// Stats aggregates BandEvents for a running dedup or merge job into a
// thread-safe snapshot the dashboard polls on each tick.
type Stats struct {
	mu sync.RWMutex

	startTime time.Time
	events    []BandEvent
	totalBands int
}

// NewStats returns a Stats timer starting now.
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// SetTotalBands records how many bands this run will process, for the
// overall progress fraction.
func (s *Stats) SetTotalBands(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalBands = n
}

// Record appends one band's outcome.
func (s *Stats) Record(ev BandEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Snapshot returns an immutable view of the run so far.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		BandsCompleted: len(s.events),
		TotalBands:     s.totalBands,
		Elapsed:        time.Since(s.startTime),
	}
	if len(s.events) > 0 {
		last := s.events[len(s.events)-1]
		snap.Last = last
		var totalDetected uint64
		for _, ev := range s.events {
			totalDetected += ev.NumDetected
		}
		snap.TotalDetected = totalDetected
	}
	return snap
}

// StatsSnapshot is a point-in-time, lock-free copy of Stats for rendering.
type StatsSnapshot struct {
	BandsCompleted int
	TotalBands     int
	TotalDetected  uint64
	Last           BandEvent
	Elapsed        time.Duration
}

// Fraction returns the bands-completed progress, 0 if TotalBands is unset.
func (s StatsSnapshot) Fraction() float64 {
	if s.TotalBands == 0 {
		return 0
	}
	return float64(s.BandsCompleted) / float64(s.TotalBands)
}

// StatsView renders a Stats snapshot as a bordered panel.
type StatsView struct {
	width int
}

// NewStatsView returns a StatsView of the given panel width.
func NewStatsView(width int) *StatsView { return &StatsView{width: width} }

// SetWidth resizes the panel.
func (v *StatsView) SetWidth(width int) { v.width = width }

// Render draws the panel.
func (v *StatsView) Render(snap StatsSnapshot) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("📊 Bands"))
	b.WriteString("\n\n")
	b.WriteString(RenderLabelValue("Completed", fmt.Sprintf("%d / %d", snap.BandsCompleted, snap.TotalBands)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Elapsed", formatDuration(snap.Elapsed)))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("🔁 Last band"))
	b.WriteString("\n\n")
	b.WriteString(RenderLabelValue("Band", fmt.Sprintf("%d", snap.Last.Band)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Items", formatNumber(snap.Last.NumItems)))
	b.WriteString("\n")
	b.WriteString(RenderLabel("Active"))
	b.WriteString(" ")
	b.WriteString(SuccessStyle.Render(formatNumber(snap.Last.NumActiveAfter)))
	b.WriteString(" | ")
	b.WriteString(RenderLabel("Detected"))
	b.WriteString(" ")
	b.WriteString(ErrorStyle.Render(formatNumber(snap.Last.NumDetected)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Detection ratio", fmt.Sprintf("%.2f%%", snap.Last.DetectionRatio*100)))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("∑ Totals"))
	b.WriteString("\n\n")
	b.WriteString(RenderLabelValue("Total detected", formatNumber(snap.TotalDetected)))

	return StatsPanelStyle.Width(v.width).Render(b.String())
}

func formatNumber(n uint64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
