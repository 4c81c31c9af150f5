// Package dedup implements the within-group deduplicator: it reads one
// band's worth of MinHash buckets from every file in a group, sorts
// documents by bucket bytes, and writes the survivors of each duplicate run
// to a split index while flagging the rest as duplicates.
package dedup

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/corpusdedup/doubri/internal/bucket"
	"github.com/corpusdedup/doubri/internal/doubrierr"
	"github.com/corpusdedup/doubri/internal/flagfile"
	"github.com/corpusdedup/doubri/internal/indexfile"
	"github.com/corpusdedup/doubri/internal/minhashfile"
	"github.com/corpusdedup/doubri/internal/workpool"
)

// NumSplits is the fixed fan-out of the per-bucket index: documents are
// routed to one of 256 split files by the last byte of their bucket.
const NumSplits = 256

// HashFile is one MinHash file contributing to a group, with its position
// within the group's flat item numbering.
type HashFile struct {
	Filename    string
	NumItems    uint64
	StartNumber uint64
}

// BandResult reports one band's before/after counts, handed to OnBand so a
// caller can drive a live progress display without parsing log lines.
type BandResult struct {
	Band            int
	TotalBands      int
	NumItems        uint64
	NumActiveBefore uint64
	NumActiveAfter  uint64
	NumDetected     uint64
	DetectionRatio  float64
	Elapsed         time.Duration
}

// Dedup deduplicates one group of MinHash files across all of its bands.
type Dedup struct {
	logger *slog.Logger
	group  uint16
	pool   *workpool.Pool

	Files         []HashFile
	NumItems      uint64
	BytesPerHash  int
	NumHashValues int
	Begin, End    int

	// OnBand, if set, is called after each band completes, in addition to
	// the structured log line. Used to drive the optional TUI/HTTP
	// progress views without coupling this package to them.
	OnBand func(BandResult)

	// TrimIndices, if set, makes Run additionally write an untrimmed
	// (".index.") copy of every band/split's index file alongside the
	// trimmed (".idx.") one it always writes. The reference implementation
	// guards this behind a disabled-by-default build switch (spec §4.E,
	// §9 Open Questions); both layouts carry identical records.
	TrimIndices bool

	buffer []byte
	flags  []byte
}

// New returns a Dedup that stamps every survivor with the given group
// number and logs through logger.
func New(logger *slog.Logger, group uint16, pool *workpool.Pool) *Dedup {
	return &Dedup{logger: logger, group: group, pool: pool}
}

// AppendFile registers filename as one of the group's MinHash files. Files
// must be appended before Initialize.
func (d *Dedup) AppendFile(filename string) {
	d.Files = append(d.Files, HashFile{Filename: filename})
}

// Initialize opens every registered file to validate consistency and
// compute the group's flat item numbering, then allocates the bucket
// buffer and flag vector.
func (d *Dedup) Initialize() error {
	d.logger.Info("group", "group", d.group)
	d.logger.Info("num_minhash_files", "count", len(d.Files))

	var numItems uint64
	for i := range d.Files {
		hf := &d.Files[i]
		hf.StartNumber = numItems

		r, err := minhashfile.Open(hf.Filename)
		if err != nil {
			return fmt.Errorf("dedup: open %s: %w", hf.Filename, err)
		}
		if i == 0 {
			d.BytesPerHash = r.BytesPerHash
			d.NumHashValues = r.NumHashValues
			d.Begin = r.Begin
			d.End = r.End
			d.logger.Info("bytes_per_hash", "value", d.BytesPerHash)
			d.logger.Info("num_hash_values", "value", d.NumHashValues)
			d.logger.Info("begin", "value", d.Begin)
			d.logger.Info("end", "value", d.End)
		} else {
			if d.BytesPerHash != r.BytesPerHash {
				r.Close()
				return fmt.Errorf("dedup: inconsistent bytes_per_hash in %s: %w", hf.Filename, doubrierr.ErrConsistency)
			}
			if d.NumHashValues != r.NumHashValues {
				r.Close()
				return fmt.Errorf("dedup: inconsistent num_hash_values in %s: %w", hf.Filename, doubrierr.ErrConsistency)
			}
			if d.Begin != r.Begin {
				r.Close()
				return fmt.Errorf("dedup: inconsistent begin in %s: %w", hf.Filename, doubrierr.ErrConsistency)
			}
			if d.End != r.End {
				r.Close()
				return fmt.Errorf("dedup: inconsistent end in %s: %w", hf.Filename, doubrierr.ErrConsistency)
			}
		}
		hf.NumItems = r.NumItems
		numItems += r.NumItems
		r.Close()
	}
	d.NumItems = numItems
	d.logger.Info("num_total_items", "value", d.NumItems)

	bytesPerBucket := d.BytesPerHash * d.NumHashValues
	d.buffer = make([]byte, bytesPerBucket*int(d.NumItems))
	d.flags = make([]byte, d.NumItems)
	for i := range d.flags {
		d.flags[i] = flagfile.Active
	}
	return nil
}

// SaveFlag writes the current flag vector to filename.
func (d *Dedup) SaveFlag(filename string) error {
	d.logger.Info("save flags", "file", filename)
	return flagfile.Save(filename, d.flags)
}

// WriteSourceList writes the `.src` file listing each source MinHash file
// and its item count.
func (d *Dedup) WriteSourceList(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dedup: create source list %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	for _, hf := range d.Files {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", hf.NumItems, hf.Filename); err != nil {
			return fmt.Errorf("dedup: write source list: %w", err)
		}
	}
	return bw.Flush()
}

// Run deduplicates every band in [Begin, End), logging the elapsed time and
// before/after active counts.
func (d *Dedup) Run(basename string, reverse bool) error {
	start := time.Now()
	numActiveBefore := flagfile.CountActive(d.flags)
	d.logger.Info("reverse", "reverse", reverse)

	for bn := d.Begin; bn < d.End; bn++ {
		d.logger.Info("deduplication for band", "band", bn)
		if err := d.DeduplicateBucket(basename, bn, reverse); err != nil {
			return err
		}
	}

	if d.TrimIndices {
		if err := d.writeUntrimmedIndices(basename); err != nil {
			return err
		}
	}

	numActiveAfter := flagfile.CountActive(d.flags)
	d.logger.Info("result",
		"num_items", d.NumItems,
		"bytes_per_hash", d.BytesPerHash,
		"num_hash_values", d.NumHashValues,
		"begin", d.Begin,
		"end", d.End,
		"num_active_before", numActiveBefore,
		"num_active_after", numActiveAfter,
		"time_seconds", time.Since(start).Seconds(),
	)
	return nil
}

// DeduplicateBucket processes one band: it reads every file's bucket array
// for bucketNumber into the shared buffer, sorts documents by bucket bytes,
// and writes survivors to 256 split index files while flagging the rest as
// local duplicates, then promotes local flags to global ones.
func (d *Dedup) DeduplicateBucket(basename string, bucketNumber int, reverse bool) error {
	start := time.Now()
	bytesPerBucket := d.BytesPerHash * d.NumHashValues

	d.logger.Info("read buckets", "band", bucketNumber, "files", len(d.Files))
	readErr := d.pool.Run(len(d.Files), func(i int) error {
		hf := d.Files[i]
		r, err := minhashfile.Open(hf.Filename)
		if err != nil {
			return fmt.Errorf("dedup: open %s: %w", hf.Filename, err)
		}
		defer r.Close()
		off := hf.StartNumber * uint64(bytesPerBucket)
		end := off + hf.NumItems*uint64(bytesPerBucket)
		if err := r.ReadBucketArray(d.buffer[off:end], bucketNumber); err != nil {
			return fmt.Errorf("dedup: read bucket array from %s: %w", hf.Filename, err)
		}
		return nil
	})
	if readErr != nil {
		return readErr
	}

	arena := bucket.NewArena(d.buffer, bytesPerBucket)
	elements := bucket.NewElements(d.NumItems)
	if reverse {
		bucket.SortDescending(elements, arena)
	} else {
		bucket.SortAscending(elements, arena)
	}

	numActiveBefore := flagfile.CountActive(d.flags)

	d.logger.Info("write non-duplicate items to trimmed index", "band", bucketNumber, "basename", basename)
	writeErr := d.pool.Run(NumSplits, func(split int) error {
		return d.emitSplit(basename, bucketNumber, uint8(split), bytesPerBucket, elements, arena)
	})
	if writeErr != nil {
		return writeErr
	}

	numActiveAfter := 0
	numDetected := 0
	for _, f := range d.flags {
		switch f {
		case flagfile.Active:
			numActiveAfter++
		case flagfile.Local:
			numDetected++
		}
	}
	flagfile.PromoteLocal(d.flags)

	var activeRatio, detectionRatio float64
	if d.NumItems > 0 {
		activeRatio = float64(numActiveAfter) / float64(d.NumItems)
		detectionRatio = float64(numDetected) / float64(d.NumItems)
	}
	elapsed := time.Since(start)
	d.logger.Info("deduplication completed",
		"band", bucketNumber,
		"num_active_before", numActiveBefore,
		"num_detected", numDetected,
		"num_active_after", numActiveAfter,
		"active_ratio", activeRatio,
		"detection_ratio", detectionRatio,
		"time_seconds", elapsed.Seconds(),
	)
	if d.OnBand != nil {
		d.OnBand(BandResult{
			Band:            bucketNumber,
			TotalBands:      d.End - d.Begin,
			NumItems:        d.NumItems,
			NumActiveBefore: uint64(numActiveBefore),
			NumActiveAfter:  uint64(numActiveAfter),
			NumDetected:     uint64(numDetected),
			DetectionRatio:  detectionRatio,
			Elapsed:         elapsed,
		})
	}
	return nil
}

// emitSplit sweeps the globally sorted elements for one band, writing the
// survivor of every maximal run of equal buckets routed to split and
// flagging the rest of the run as local duplicates. The survivor is written
// only if it is still active; an already-duplicate survivor still causes
// its run-mates to be flagged, matching the run-based sweep rather than a
// per-item check.
func (d *Dedup) emitSplit(basename string, bucketNumber int, split uint8, bytesPerBucket int, elements []uint64, arena *bucket.Arena) error {
	w, err := indexfile.Create(basename, bucketNumber, split, bytesPerBucket, true)
	if err != nil {
		return err
	}
	defer w.Close()

	var numTotalItems, numActiveItems uint64
	i := 0
	for i < len(elements) {
		cur := elements[i]
		if arena.Split(cur) != split {
			i++
			continue
		}
		j := i + 1
		for j < len(elements) && arena.Equal(cur, elements[j]) {
			j++
		}

		if d.flags[cur] == flagfile.Active {
			if err := w.WriteItem(d.group, cur, arena.Bucket(cur)); err != nil {
				return err
			}
			numActiveItems++
		}
		numTotalItems++

		for k := i + 1; k < j; k++ {
			d.flags[elements[k]] = flagfile.Local
			numTotalItems++
		}
		i = j
	}

	if err := w.UpdateNumActiveItems(numActiveItems); err != nil {
		return err
	}
	if err := w.UpdateNumTotalItems(numTotalItems); err != nil {
		return err
	}
	return nil
}

// writeUntrimmedIndices copies every already-written trimmed (".idx.")
// index file for [Begin, End) x [0, NumSplits) into its untrimmed
// (".index.") counterpart, record for record, via WriteRaw so the bytes
// are re-emitted verbatim rather than repacked.
func (d *Dedup) writeUntrimmedIndices(basename string) error {
	bytesPerBucket := d.BytesPerHash * d.NumHashValues
	for bn := d.Begin; bn < d.End; bn++ {
		bn := bn
		if err := d.pool.Run(NumSplits, func(split int) error {
			return d.trimBandSplit(basename, bn, uint8(split), bytesPerBucket)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dedup) trimBandSplit(basename string, bucketNumber int, split uint8, bytesPerBucket int) error {
	r, err := indexfile.Open(basename, bucketNumber, split, true)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := indexfile.Create(basename, bucketNumber, split, bytesPerBucket, false)
	if err != nil {
		return err
	}
	defer w.Close()

	buf := make([]byte, r.BytesPerItem*int(r.NumActiveItems))
	if len(buf) > 0 {
		if err := r.ReadAll(buf); err != nil {
			return err
		}
		if err := w.WriteRaw(buf); err != nil {
			return err
		}
	}
	if err := w.UpdateNumActiveItems(r.NumActiveItems); err != nil {
		return err
	}
	return w.UpdateNumTotalItems(r.NumTotalItems)
}
