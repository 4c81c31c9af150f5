package minhashfile

import (
	"encoding/binary"
	"path/filepath"
	"testing"
)

func TestRoundTripSingleSector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.mh")
	const (
		begin, end    = 0, 3
		numHashValues = 4
	)

	w, err := Create(path, 8, numHashValues, begin, end)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	docs := [][]uint64{
		{1, 2, 3, 4, 10, 20, 30, 40, 100, 200, 300, 400},
		{5, 6, 7, 8, 50, 60, 70, 80, 500, 600, 700, 800},
	}
	for _, d := range docs {
		if err := w.Put(d); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.NumItems != uint64(len(docs)) {
		t.Fatalf("NumItems = %d, want %d", r.NumItems, len(docs))
	}

	for b := begin; b < end; b++ {
		buf := make([]byte, int(r.NumItems)*r.BytesPerBucket())
		if err := r.ReadBucketArray(buf, b); err != nil {
			t.Fatalf("ReadBucketArray(%d): %v", b, err)
		}
		for doc, d := range docs {
			want := d[(b-begin)*numHashValues : (b-begin+1)*numHashValues]
			got := buf[doc*r.BytesPerBucket() : (doc+1)*r.BytesPerBucket()]
			for k, h := range want {
				gotH := binary.BigEndian.Uint64(got[k*8 : k*8+8])
				if gotH != h {
					t.Errorf("band %d doc %d hash %d = %d, want %d", b, doc, k, gotH, h)
				}
			}
		}
	}
}

func TestRoundTripMultiSector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.mh")
	const (
		begin, end    = 0, 2
		numHashValues = 2
		numDocs       = SectorSize + 7
	)

	w, err := Create(path, 8, numHashValues, begin, end)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < numDocs; i++ {
		hashes := []uint64{uint64(i), uint64(i + 1), uint64(i + 2), uint64(i + 3)}
		if err := w.Put(hashes); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	buf := make([]byte, int(r.NumItems)*r.BytesPerBucket())
	if err := r.ReadBucketArray(buf, 1); err != nil {
		t.Fatalf("ReadBucketArray: %v", err)
	}
	for i := 0; i < numDocs; i++ {
		got := binary.BigEndian.Uint64(buf[i*16+0 : i*16+8])
		want := uint64(i + 2)
		if got != want {
			t.Errorf("doc %d hash0 = %d, want %d", i, got, want)
		}
	}
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mh")
	w, err := Create(path, 8, 20, 0, 40)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.NumItems != 0 {
		t.Fatalf("NumItems = %d, want 0", r.NumItems)
	}
}
