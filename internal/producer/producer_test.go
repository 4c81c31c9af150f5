package producer

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corpusdedup/doubri/internal/minhashfile"
)

func testConfig() Config {
	return Config{NGram: 3, NumHashValues: 4, Begin: 0, End: 2, Field: "text"}
}

func TestRunBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	p, err := New(path, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	input := strings.NewReader("{\"text\":\"hello world\"}\n{\"text\":\"hello there\"}\n")
	if err := p.Run(input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.NumItems() != 2 {
		t.Fatalf("NumItems() = %d, want 2", p.NumItems())
	}
	if p.NumErrors() != 0 {
		t.Fatalf("NumErrors() = %d, want 0", p.NumErrors())
	}

	r, err := minhashfile.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.NumItems != 2 {
		t.Fatalf("stored NumItems = %d, want 2", r.NumItems)
	}
}

func TestRunParseErrorRecovered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	p, err := New(path, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	input := strings.NewReader("{\"text\":\"valid document here\"}\nnot json at all\n{\"text\":\"another valid one\"}\n")
	if err := p.Run(input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.NumItems() != 3 {
		t.Fatalf("NumItems() = %d, want 3 (item count must match line count)", p.NumItems())
	}
	if p.NumErrors() != 1 {
		t.Fatalf("NumErrors() = %d, want 1", p.NumErrors())
	}

	errBytes, err := os.ReadFile(path + ".err")
	if err != nil {
		t.Fatalf("reading .err file: %v", err)
	}
	if !bytes.Contains(errBytes, []byte("line 2")) {
		t.Fatalf(".err file missing line number: %s", errBytes)
	}
}

func TestRunShortTextYieldsAllOnesBucket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	cfg := testConfig()
	p, err := New(path, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(strings.NewReader("{\"text\":\"ab\"}\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := minhashfile.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	buf := make([]byte, r.BytesPerBucket())
	if err := r.ReadBucketArray(buf, 0); err != nil {
		t.Fatalf("ReadBucketArray: %v", err)
	}
	for _, b := range buf {
		if b != 0xFF {
			t.Fatalf("bucket for short text = %x, want all-0xFF", buf)
		}
	}
}

func TestRunGzipInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	gz.Write([]byte("{\"text\":\"hello gzip world\"}\n"))
	gz.Close()

	p, err := New(path, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(&compressed); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.NumItems() != 1 {
		t.Fatalf("NumItems() = %d, want 1", p.NumItems())
	}
}

func TestSameSeedSameTextIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")

	for _, path := range []string{a, b} {
		p, err := New(path, testConfig())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := p.Run(strings.NewReader("{\"text\":\"deterministic hashing check\"}\n")); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if err := p.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	ra, _ := minhashfile.Open(a)
	defer ra.Close()
	rb, _ := minhashfile.Open(b)
	defer rb.Close()

	bufA := make([]byte, ra.BytesPerBucket())
	bufB := make([]byte, rb.BytesPerBucket())
	ra.ReadBucketArray(bufA, 0)
	rb.ReadBucketArray(bufB, 0)
	if !bytes.Equal(bufA, bufB) {
		t.Fatalf("identical input produced different buckets: %x vs %x", bufA, bufB)
	}
}
