// Package minhashfile implements the bucket-major MinHash file codec: the
// on-disk format written by the MinHash producer and consumed by the group
// deduplicator. Buckets are grouped into 512-document sectors so that a
// single seek+read recovers every bucket of one LSH band at once, instead of
// one short read per document.
package minhashfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/corpusdedup/doubri/internal/doubrierr"
)

const (
	// Magic is the 8-byte ASCII header identifying a MinHash file.
	Magic = "DoubriH4"
	// SectorSize is the fixed number of documents grouped per bucket-major
	// sector. The format hardcodes this value; readers reject files that
	// report a different sector size.
	SectorSize = 512
	// HeaderSize is the number of bytes occupied by the fixed-width header.
	HeaderSize = 32
)

// Writer streams documents' bucket values to a MinHash file in bucket-major
// sectors. Callers must supply bytesPerHash (4 or 8); the reference producer
// uses 8 to match a 64-bit hash family.
type Writer struct {
	f             *os.File
	bytesPerHash  int
	numHashValues int
	begin, end    int
	sectors       [][]byte // one scratch buffer per band, holds up to SectorSize buckets
	i             int      // documents buffered in the current sector
	numItems      uint64
}

// Create opens path for writing and initializes the header and per-band
// scratch buffers. bytesPerHash must be 4 or 8.
func Create(path string, bytesPerHash, numHashValues, begin, end int) (*Writer, error) {
	if bytesPerHash != 4 && bytesPerHash != 8 {
		return nil, fmt.Errorf("minhashfile: unsupported bytes_per_hash %d: %w", bytesPerHash, doubrierr.ErrRange)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("minhashfile: create %s: %w", path, err)
	}

	w := &Writer{
		f:             f,
		bytesPerHash:  bytesPerHash,
		numHashValues: numHashValues,
		begin:         begin,
		end:           end,
		sectors:       make([][]byte, end-begin),
	}
	for i := range w.sectors {
		w.sectors[i] = make([]byte, 0, SectorSize*numHashValues*bytesPerHash)
	}

	header := make([]byte, HeaderSize)
	copy(header[0x00:0x08], Magic)
	// num_items at 0x08 is rewritten on Close.
	binary.LittleEndian.PutUint16(header[0x10:0x12], uint16(bytesPerHash))
	binary.LittleEndian.PutUint16(header[0x12:0x14], uint16(numHashValues))
	binary.LittleEndian.PutUint32(header[0x14:0x18], uint32(begin))
	binary.LittleEndian.PutUint32(header[0x18:0x1C], uint32(end))
	binary.LittleEndian.PutUint32(header[0x1C:0x20], uint32(SectorSize))
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("minhashfile: write header %s: %w", path, err)
	}
	return w, nil
}

// Put appends one document's bucket values. hashes must have length
// (end-begin)*numHashValues, laid out band by band.
func (w *Writer) Put(hashes []uint64) error {
	want := (w.end - w.begin) * w.numHashValues
	if len(hashes) != want {
		return fmt.Errorf("minhashfile: put expected %d hash values, got %d: %w", want, len(hashes), doubrierr.ErrConsistency)
	}
	if w.i >= SectorSize {
		if err := w.flush(); err != nil {
			return err
		}
	}

	buf := make([]byte, w.bytesPerHash)
	for j := 0; j < w.end-w.begin; j++ {
		band := hashes[j*w.numHashValues : (j+1)*w.numHashValues]
		for _, h := range band {
			if w.bytesPerHash == 4 {
				if h > 0xFFFFFFFF {
					return fmt.Errorf("minhashfile: hash value %d overflows 4-byte width: %w", h, doubrierr.ErrRange)
				}
				binary.BigEndian.PutUint32(buf, uint32(h))
			} else {
				binary.BigEndian.PutUint64(buf, h)
			}
			w.sectors[j] = append(w.sectors[j], buf...)
		}
	}

	w.i++
	w.numItems++
	return nil
}

func (w *Writer) flush() error {
	if w.i == 0 {
		return nil
	}
	for j := range w.sectors {
		if _, err := w.f.Write(w.sectors[j]); err != nil {
			return fmt.Errorf("minhashfile: write sector: %w", err)
		}
		w.sectors[j] = w.sectors[j][:0]
	}
	w.i = 0
	return nil
}

// NumItems returns the number of documents written so far.
func (w *Writer) NumItems() uint64 { return w.numItems }

// Close flushes remaining buckets, rewrites the num_items header field, and
// closes the underlying file.
func (w *Writer) Close() error {
	if err := w.flush(); err != nil {
		w.f.Close()
		return err
	}
	if _, err := w.f.Seek(0x08, io.SeekStart); err != nil {
		w.f.Close()
		return fmt.Errorf("minhashfile: seek header: %w", err)
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], w.numItems)
	if _, err := w.f.Write(b[:]); err != nil {
		w.f.Close()
		return fmt.Errorf("minhashfile: rewrite num_items: %w", err)
	}
	return w.f.Close()
}

// Reader reads the header of a MinHash file and serves random-access band
// reads via ReadBucketArray.
type Reader struct {
	f             *os.File
	NumItems      uint64
	BytesPerHash  int
	NumHashValues int
	Begin, End    int
}

// Open validates the header of path and returns a Reader positioned to serve
// ReadBucketArray calls.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("minhashfile: open %s: %w", path, err)
	}
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("minhashfile: read header %s: %w", path, err)
	}
	if string(header[0x00:0x08]) != Magic {
		f.Close()
		return nil, fmt.Errorf("minhashfile: bad magic in %s: %w", path, doubrierr.ErrFormat)
	}
	r := &Reader{
		f:             f,
		NumItems:      binary.LittleEndian.Uint64(header[0x08:0x10]),
		BytesPerHash:  int(binary.LittleEndian.Uint16(header[0x10:0x12])),
		NumHashValues: int(binary.LittleEndian.Uint16(header[0x12:0x14])),
		Begin:         int(binary.LittleEndian.Uint32(header[0x14:0x18])),
		End:           int(binary.LittleEndian.Uint32(header[0x18:0x1C])),
	}
	sectorSize := binary.LittleEndian.Uint32(header[0x1C:0x20])
	if sectorSize != SectorSize {
		f.Close()
		return nil, fmt.Errorf("minhashfile: unexpected sector size %d in %s: %w", sectorSize, path, doubrierr.ErrFormat)
	}
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// BytesPerBucket returns the size in bytes of one document's bucket.
func (r *Reader) BytesPerBucket() int { return r.BytesPerHash * r.NumHashValues }

// ReadBucketArray copies every document's band-`bucketNumber` bucket into
// buffer, which must be at least NumItems*BytesPerBucket() bytes. It walks
// full sectors followed by the trailing short sector, seeking directly to
// each sector's band slice so that one read recovers SectorSize buckets.
func (r *Reader) ReadBucketArray(buffer []byte, bucketNumber int) error {
	bytesPerBucket := r.BytesPerBucket()
	numSectors := int(r.NumItems) / SectorSize
	numRemaining := int(r.NumItems) % SectorSize
	bytesPerSectorBA := SectorSize * bytesPerBucket
	bytesPerSector := (r.End - r.Begin) * bytesPerSectorBA

	need := int(r.NumItems) * bytesPerBucket
	if len(buffer) < need {
		return fmt.Errorf("minhashfile: buffer too small: need %d, have %d", need, len(buffer))
	}

	p := 0
	for sector := 0; sector < numSectors; sector++ {
		offset := int64(HeaderSize) + int64(bytesPerSector)*int64(sector) + int64(bytesPerSectorBA)*int64(bucketNumber-r.Begin)
		if _, err := r.f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("minhashfile: seek: %w", err)
		}
		if _, err := io.ReadFull(r.f, buffer[p:p+bytesPerSectorBA]); err != nil {
			return fmt.Errorf("minhashfile: read sector: %w", err)
		}
		p += bytesPerSectorBA
	}
	if numRemaining > 0 {
		bytes := numRemaining * bytesPerBucket
		offset := int64(HeaderSize) + int64(bytesPerSector)*int64(numSectors) + int64(bytes)*int64(bucketNumber-r.Begin)
		if _, err := r.f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("minhashfile: seek trailing sector: %w", err)
		}
		if _, err := io.ReadFull(r.f, buffer[p:p+bytes]); err != nil {
			return fmt.Errorf("minhashfile: read trailing sector: %w", err)
		}
		p += bytes
	}
	return nil
}
