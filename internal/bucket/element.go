// Package bucket implements the Element + comparator discipline used to sort
// one LSH band's worth of documents: a flat arena of bucket bytes indexed by
// ordinal, plus ascending/descending orderings that tie-break on ordinal so
// that duplicate detection is stable across bands.
//
// Unlike the reference implementation's Element, which carries the buffer
// pointer and bucket width as static (package-global) fields, an Arena here
// is an explicit value threaded through closures — sort workers observe a
// stable reference without any shared mutable package state.
package bucket

import (
	"bytes"
	"sort"
)

// Arena is a flat buffer of num_items*bytesPerBucket bytes: the band
// currently being processed. It is written once per band by parallel reads
// and is read-only during sort and emit.
type Arena struct {
	buf            []byte
	bytesPerBucket int
}

// NewArena wraps buf as an arena of fixed-width buckets.
func NewArena(buf []byte, bytesPerBucket int) *Arena {
	return &Arena{buf: buf, bytesPerBucket: bytesPerBucket}
}

// BytesPerBucket returns the fixed width of one document's bucket.
func (a *Arena) BytesPerBucket() int { return a.bytesPerBucket }

// Bucket returns the bucket bytes for ordinal i.
func (a *Arena) Bucket(i uint64) []byte {
	off := int(i) * a.bytesPerBucket
	return a.buf[off : off+a.bytesPerBucket]
}

// Split returns the split key (last byte of the bucket) for ordinal i.
func (a *Arena) Split(i uint64) byte {
	return a.Bucket(i)[a.bytesPerBucket-1]
}

// Equal reports whether ordinals i and j have identical bucket bytes.
func (a *Arena) Equal(i, j uint64) bool {
	return bytes.Equal(a.Bucket(i), a.Bucket(j))
}

// Compare returns memcmp semantics (-1, 0, 1) between the bucket bytes of
// ordinals i and j, ignoring ordinal value.
func (a *Arena) Compare(i, j uint64) int {
	return bytes.Compare(a.Bucket(i), a.Bucket(j))
}

// NewElements returns a freshly numbered ordinal slice [0, n), the required
// reset before sorting a new band (the previous band's sort permuted the
// array in place).
func NewElements(n uint64) []uint64 {
	elements := make([]uint64, n)
	for i := range elements {
		elements[i] = uint64(i)
	}
	return elements
}

// SortAscending orders elements lexicographically by bucket bytes, ties
// broken by ascending ordinal. The survivor of a duplicate run is the
// element with the minimum ordinal.
func SortAscending(elements []uint64, a *Arena) {
	sort.Slice(elements, func(x, y int) bool {
		i, j := elements[x], elements[y]
		if c := a.Compare(i, j); c != 0 {
			return c < 0
		}
		return i < j
	})
}

// SortDescending orders elements lexicographically ascending by bucket
// bytes (buckets always compare ascending), ties broken by descending
// ordinal. The survivor of a duplicate run is the element with the maximum
// ordinal.
func SortDescending(elements []uint64, a *Arena) {
	sort.Slice(elements, func(x, y int) bool {
		i, j := elements[x], elements[y]
		if c := a.Compare(i, j); c != 0 {
			return c < 0
		}
		return i > j
	})
}
