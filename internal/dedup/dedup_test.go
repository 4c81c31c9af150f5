package dedup

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/corpusdedup/doubri/internal/flagfile"
	"github.com/corpusdedup/doubri/internal/indexfile"
	"github.com/corpusdedup/doubri/internal/minhashfile"
	"github.com/corpusdedup/doubri/internal/workpool"
)

func writeMinHash(t *testing.T, path string, begin, end, numHashValues int, buckets [][]uint64) {
	t.Helper()
	w, err := minhashfile.Create(path, 8, numHashValues, begin, end)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, b := range buckets {
		if err := w.Put(b); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDedupMarksExactDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file0.bin")

	// Two bands (begin=0, end=2), one hash value per band. Items 0 and 2
	// share an identical bucket in both bands; item 1 is distinct.
	writeMinHash(t, path, 0, 2, 1, [][]uint64{
		{10, 20},
		{99, 88},
		{10, 20},
	})

	d := New(testLogger(), 0, workpool.New(4))
	d.AppendFile(path)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	basename := filepath.Join(dir, "out")
	if err := d.Run(basename, false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if d.flags[0] != flagfile.Active {
		t.Fatalf("flags[0] = %q, want active (lowest ordinal survives ascending sort)", d.flags[0])
	}
	if d.flags[1] != flagfile.Active {
		t.Fatalf("flags[1] = %q, want active (unique bucket)", d.flags[1])
	}
	if d.flags[2] != flagfile.Duplicate {
		t.Fatalf("flags[2] = %q, want duplicate", d.flags[2])
	}
}

func TestDedupReverseKeepsHighestOrdinal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file0.bin")
	writeMinHash(t, path, 0, 1, 1, [][]uint64{
		{10},
		{10},
	})

	d := New(testLogger(), 0, workpool.New(4))
	d.AppendFile(path)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := d.Run(filepath.Join(dir, "out"), true); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if d.flags[0] != flagfile.Duplicate {
		t.Fatalf("flags[0] = %q, want duplicate under reverse mode", d.flags[0])
	}
	if d.flags[1] != flagfile.Active {
		t.Fatalf("flags[1] = %q, want active (highest ordinal survives under reverse)", d.flags[1])
	}
}

func TestDedupWritesSurvivorsToIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file0.bin")
	writeMinHash(t, path, 0, 1, 1, [][]uint64{
		{5},
		{7},
	})

	d := New(testLogger(), 3, workpool.New(4))
	d.AppendFile(path)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	basename := filepath.Join(dir, "out")
	if err := d.Run(basename, false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	totalActive := 0
	for split := 0; split < NumSplits; split++ {
		r, err := indexfile.Open(basename, 0, uint8(split), true)
		if err != nil {
			t.Fatalf("Open split %d: %v", split, err)
		}
		totalActive += int(r.NumActiveItems)
		r.Close()
	}
	if totalActive != 2 {
		t.Fatalf("totalActive = %d, want 2", totalActive)
	}
}

func TestDedupTrimIndicesWritesUntrimmedCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file0.bin")
	writeMinHash(t, path, 0, 1, 1, [][]uint64{
		{5},
		{7},
	})

	d := New(testLogger(), 0, workpool.New(4))
	d.TrimIndices = true
	d.AppendFile(path)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	basename := filepath.Join(dir, "out")
	if err := d.Run(basename, false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var trimmedActive, untrimmedActive int
	for split := 0; split < NumSplits; split++ {
		tr, err := indexfile.Open(basename, 0, uint8(split), true)
		if err != nil {
			t.Fatalf("Open trimmed split %d: %v", split, err)
		}
		trimmedActive += int(tr.NumActiveItems)
		tr.Close()

		ur, err := indexfile.Open(basename, 0, uint8(split), false)
		if err != nil {
			t.Fatalf("Open untrimmed split %d: %v", split, err)
		}
		untrimmedActive += int(ur.NumActiveItems)
		ur.Close()
	}
	if trimmedActive != untrimmedActive {
		t.Fatalf("trimmedActive = %d, untrimmedActive = %d, want equal", trimmedActive, untrimmedActive)
	}
}

func TestDedupInconsistentFilesRejected(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	writeMinHash(t, a, 0, 2, 1, [][]uint64{{1, 2}})
	writeMinHash(t, b, 0, 3, 1, [][]uint64{{1, 2, 3}})

	d := New(testLogger(), 0, workpool.New(4))
	d.AppendFile(a)
	d.AppendFile(b)
	if err := d.Initialize(); err == nil {
		t.Fatal("Initialize() = nil, want consistency error")
	}
}

func TestWriteSourceList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file0.bin")
	writeMinHash(t, path, 0, 1, 1, [][]uint64{{1}, {2}})

	d := New(testLogger(), 0, workpool.New(4))
	d.AppendFile(path)
	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	srcPath := filepath.Join(dir, "out.src")
	if err := d.WriteSourceList(srcPath); err != nil {
		t.Fatalf("WriteSourceList: %v", err)
	}
}
