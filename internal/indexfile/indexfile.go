// Package indexfile implements the per-band, per-split bucket-index codec:
// the 256-way sharded files a group deduplicator writes and a cross-group
// merger reads, sorted ascending by bucket bytes within each split.
package indexfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/corpusdedup/doubri/internal/doubrierr"
)

const (
	// Magic is the 8-byte ASCII header identifying an index file.
	Magic = "DoubriI4"
	// HeaderSize is the number of bytes occupied by the fixed-width header.
	HeaderSize = 32
)

// Path returns the on-disk path for a (basename, bucket, split) index file,
// using ".idx." for trimmed output and ".index." for untrimmed output;
// bucketNumber is rendered as 5 zero-padded decimal digits, split as 2
// zero-padded hex digits.
func Path(basename string, bucketNumber int, split uint8, trimmed bool) string {
	tag := ".index."
	if trimmed {
		tag = ".idx."
	}
	return fmt.Sprintf("%s%s%05d.%02x", basename, tag, bucketNumber, split)
}

// PackID packs a 16-bit group number and 48-bit ordinal into the big-endian
// 8-byte id word used at the front of every index record.
func PackID(group uint16, ordinal uint64) ([8]byte, error) {
	var b [8]byte
	if ordinal >= 1<<48 {
		return b, fmt.Errorf("indexfile: ordinal %d exceeds 48 bits: %w", ordinal, doubrierr.ErrRange)
	}
	v := (uint64(group) << 48) | (ordinal & 0x0000FFFFFFFFFFFF)
	binary.BigEndian.PutUint64(b[:], v)
	return b, nil
}

// GroupNumber unpacks the group field from a record id.
func GroupNumber(id []byte) uint16 {
	return uint16(id[0])<<8 | uint16(id[1])
}

// ItemNumber unpacks the 48-bit ordinal field from a record id.
func ItemNumber(id []byte) uint64 {
	var v uint64
	for i := 2; i < 8; i++ {
		v = v<<8 | uint64(id[i])
	}
	return v
}

// SetGroup overwrites the group field of a raw record id in place.
func SetGroup(id []byte, group uint16) {
	id[0] = byte(group >> 8)
	id[1] = byte(group)
}

// Writer writes one split's index file: a header followed by variable-count
// records, each an 8-byte big-endian id plus the bucket bytes.
type Writer struct {
	f               *os.File
	Filename        string
	BucketNumber    int
	BytesPerBucket  int
	NumTotalItems   uint64
	NumActiveItems  uint64
}

// Create opens basename's (bucketNumber, split) index file for writing and
// writes a header with zeroed counts, to be rewritten by
// UpdateNumTotalItems/UpdateNumActiveItems as writing progresses.
func Create(basename string, bucketNumber int, split uint8, bytesPerBucket int, trimmed bool) (*Writer, error) {
	filename := Path(basename, bucketNumber, split, trimmed)
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("indexfile: create %s: %w", filename, err)
	}
	w := &Writer{
		f:              f,
		Filename:       filename,
		BucketNumber:   bucketNumber,
		BytesPerBucket: bytesPerBucket,
	}
	header := make([]byte, HeaderSize)
	copy(header[0x00:0x08], Magic)
	binary.LittleEndian.PutUint32(header[0x08:0x0C], uint32(bucketNumber))
	binary.LittleEndian.PutUint32(header[0x0C:0x10], uint32(bytesPerBucket))
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("indexfile: write header %s: %w", filename, err)
	}
	return w, nil
}

// WriteItem appends one record: the packed (group, ordinal) id followed by
// the bucket bytes.
func (w *Writer) WriteItem(group uint16, ordinal uint64, bucket []byte) error {
	id, err := PackID(group, ordinal)
	if err != nil {
		return err
	}
	if _, err := w.f.Write(id[:]); err != nil {
		return fmt.Errorf("indexfile: write item id: %w", err)
	}
	if _, err := w.f.Write(bucket); err != nil {
		return fmt.Errorf("indexfile: write item bucket: %w", err)
	}
	return nil
}

// WriteRaw copies a pre-framed record (id + bucket bytes) verbatim, used by
// trim and merge to re-emit records without repacking them.
func (w *Writer) WriteRaw(record []byte) error {
	if _, err := w.f.Write(record); err != nil {
		return fmt.Errorf("indexfile: write raw record: %w", err)
	}
	return nil
}

// UpdateNumTotalItems seeks back to the header's num_total_items field,
// rewrites it, and restores the write cursor.
func (w *Writer) UpdateNumTotalItems(n uint64) error {
	return w.updateCount(0x10, n, &w.NumTotalItems)
}

// UpdateNumActiveItems seeks back to the header's num_active_items field,
// rewrites it, and restores the write cursor.
func (w *Writer) UpdateNumActiveItems(n uint64) error {
	return w.updateCount(0x18, n, &w.NumActiveItems)
}

func (w *Writer) updateCount(offset int64, n uint64, field *uint64) error {
	*field = n
	cur, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("indexfile: tell: %w", err)
	}
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("indexfile: seek header count: %w", err)
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	if _, err := w.f.Write(b[:]); err != nil {
		return fmt.Errorf("indexfile: rewrite header count: %w", err)
	}
	if _, err := w.f.Seek(cur, io.SeekStart); err != nil {
		return fmt.Errorf("indexfile: restore write cursor: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error { return w.f.Close() }

// Reader reads an index file's header and serves sequential or bulk record
// reads.
type Reader struct {
	f              *os.File
	Filename       string
	BucketNumber   int
	BytesPerBucket int
	BytesPerItem   int
	NumTotalItems  uint64
	NumActiveItems uint64
	buf            []byte
}

// Open validates the header of basename's (bucketNumber, split) index file.
func Open(basename string, bucketNumber int, split uint8, trimmed bool) (*Reader, error) {
	filename := Path(basename, bucketNumber, split, trimmed)
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("indexfile: open %s: %w", filename, err)
	}
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("indexfile: read header %s: %w", filename, err)
	}
	if string(header[0x00:0x08]) != Magic {
		f.Close()
		return nil, fmt.Errorf("indexfile: bad magic in %s: %w", filename, doubrierr.ErrFormat)
	}
	bytesPerBucket := int(binary.LittleEndian.Uint32(header[0x0C:0x10]))
	r := &Reader{
		f:              f,
		Filename:       filename,
		BucketNumber:   int(binary.LittleEndian.Uint32(header[0x08:0x0C])),
		BytesPerBucket: bytesPerBucket,
		BytesPerItem:   8 + bytesPerBucket,
		NumTotalItems:  binary.LittleEndian.Uint64(header[0x10:0x18]),
		NumActiveItems: binary.LittleEndian.Uint64(header[0x18:0x20]),
	}
	r.buf = make([]byte, r.BytesPerItem)
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Next reads one record into the reader's internal buffer, returned by Ptr.
// It reports io.EOF when the body is exhausted.
func (r *Reader) Next() error {
	if _, err := io.ReadFull(r.f, r.buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}
	return nil
}

// Ptr returns the most recently read record (id + bucket bytes).
func (r *Reader) Ptr() []byte { return r.buf }

// ReadAll reads the remainder of the body (NumActiveItems records) into
// buffer in one bulk call.
func (r *Reader) ReadAll(buffer []byte) error {
	need := r.BytesPerItem * int(r.NumActiveItems)
	if len(buffer) < need {
		return fmt.Errorf("indexfile: buffer too small: need %d, have %d", need, len(buffer))
	}
	if _, err := io.ReadFull(r.f, buffer[:need]); err != nil {
		return fmt.Errorf("indexfile: read all: %w", err)
	}
	return nil
}

// ReprID renders a record's (group, ordinal) pair as "group:ordinal".
func ReprID(record []byte) string {
	return fmt.Sprintf("%d:%d", GroupNumber(record), ItemNumber(record))
}
