package progress

import (
	"testing"
	"time"
)

func TestStatsSnapshotFraction(t *testing.T) {
	s := NewStats()
	s.SetTotalBands(4)
	s.Record(BandEvent{Band: 0, NumItems: 10, NumActiveAfter: 8, NumDetected: 2, DetectionRatio: 0.2})
	s.Record(BandEvent{Band: 1, NumItems: 10, NumActiveAfter: 6, NumDetected: 2, DetectionRatio: 0.2})

	snap := s.Snapshot()
	if snap.BandsCompleted != 2 {
		t.Fatalf("BandsCompleted = %d, want 2", snap.BandsCompleted)
	}
	if got, want := snap.Fraction(), 0.5; got != want {
		t.Fatalf("Fraction() = %v, want %v", got, want)
	}
	if snap.TotalDetected != 4 {
		t.Fatalf("TotalDetected = %d, want 4", snap.TotalDetected)
	}
	if snap.Last.Band != 1 {
		t.Fatalf("Last.Band = %d, want 1", snap.Last.Band)
	}
}

func TestDashboardUpdateRecordsEventsAndCompletes(t *testing.T) {
	d := NewDashboard(KindDedup, "corpus.bin", 2)
	d.Update(EventMsg{Band: 0, TotalBands: 2, NumItems: 4, NumActiveAfter: 3, NumDetected: 1, DetectionRatio: 0.25})

	snap := d.stats.Snapshot()
	if snap.BandsCompleted != 1 {
		t.Fatalf("BandsCompleted = %d, want 1", snap.BandsCompleted)
	}
	if len(d.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(d.logs))
	}

	model, _ := d.Update(DoneMsg{})
	dd := model.(*Dashboard)
	if dd.status != StatusCompleted {
		t.Fatalf("status = %v, want StatusCompleted", dd.status)
	}

	model, _ = d.Update(DoneMsg{Err: errTest})
	dd = model.(*Dashboard)
	if dd.status != StatusStopped {
		t.Fatalf("status = %v, want StatusStopped after error", dd.status)
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestBarRendersWithinBounds(t *testing.T) {
	b := NewBar(40)
	b.SetProgress(1.5)
	if b.percentage != 1 {
		t.Fatalf("percentage = %v, want clamped to 1", b.percentage)
	}
	b.SetProgress(-1)
	if b.percentage != 0 {
		t.Fatalf("percentage = %v, want clamped to 0", b.percentage)
	}
	out := b.Render()
	if out == "" {
		t.Fatal("Render() returned empty string")
	}
}

func TestSpinnerTicksAndStops(t *testing.T) {
	s := NewSpinner("working")
	first := s.frame
	s.Tick()
	if s.frame == first && len(SpinnerChars) > 1 {
		t.Fatal("Tick() did not advance frame")
	}
	s.Stop()
	if s.running {
		t.Fatal("Stop() left spinner running")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatNumber(999); got != "999" {
		t.Fatalf("formatNumber(999) = %q", got)
	}
	if got := formatNumber(1500); got != "1.5K" {
		t.Fatalf("formatNumber(1500) = %q", got)
	}
	if got := formatDuration(500 * time.Millisecond); got != "500ms" {
		t.Fatalf("formatDuration = %q", got)
	}
}
