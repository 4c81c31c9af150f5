package flagfile

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g0.dup")
	flags := []byte{Active, Duplicate, Active, Duplicate}
	if err := Save(path, flags); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, flags) {
		t.Fatalf("Load = %v, want %v", got, flags)
	}
}

func TestPromoteLocal(t *testing.T) {
	flags := []byte{Active, Local, Duplicate, Local}
	PromoteLocal(flags)
	want := []byte{Active, Duplicate, Duplicate, Duplicate}
	if !bytes.Equal(flags, want) {
		t.Fatalf("PromoteLocal = %v, want %v", flags, want)
	}
}

func TestCountActive(t *testing.T) {
	flags := []byte{Active, Duplicate, Active, Active}
	if n := CountActive(flags); n != 3 {
		t.Fatalf("CountActive = %d, want 3", n)
	}
}

func TestEmptyVector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dup")
	if err := Save(path, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load = %v, want empty", got)
	}
}
