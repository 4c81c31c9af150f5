// Package merge implements the cross-group merger: for every band and
// split, it merges each group's already-deduplicated index run with a
// classic merge-sort combine, keeping one representative per matching
// bucket across groups and flagging the rest as duplicates.
package merge

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/corpusdedup/doubri/internal/dedup"
	"github.com/corpusdedup/doubri/internal/doubrierr"
	"github.com/corpusdedup/doubri/internal/flagfile"
	"github.com/corpusdedup/doubri/internal/indexfile"
)

// group is a view onto a shared buffer of packed (id, bucket) records:
// Begin is fixed once the source's records are laid into the buffer; End
// shrinks as merges fold duplicate runs together.
type group struct {
	begin, end int
}

func (g *group) size() int { return g.end - g.begin }

// mergePair merges groups[left] and groups[mid] (adjacent, contiguous runs
// within buf) in place, writing the combined run back starting at
// groups[left].begin and shrinking groups[left].end to the merged count.
// Equal buckets are resolved by keeping one side, flagging the other
// side's source record as a global duplicate, and advancing past both.
func mergePair(buf []byte, bytesPerItem int, groups []group, left, mid int, flags [][]byte, reverse bool) int {
	L := append([]byte(nil), buf[groups[left].begin*bytesPerItem:groups[left].end*bytesPerItem]...)
	R := append([]byte(nil), buf[groups[mid].begin*bytesPerItem:groups[mid].end*bytesPerItem]...)
	lLen := len(L) / bytesPerItem
	rLen := len(R) / bytesPerItem

	writeBase := groups[left].begin * bytesPerItem
	i, j, k := 0, 0, 0
	numDeleted := 0

	item := func(buf []byte, idx int) []byte { return buf[idx*bytesPerItem : (idx+1)*bytesPerItem] }

	for i < lLen && j < rLen {
		lrec := item(L, i)
		rrec := item(R, j)
		cmp := bytes.Compare(lrec[8:], rrec[8:])
		switch {
		case cmp < 0:
			copy(buf[writeBase+k*bytesPerItem:], lrec)
			i++
		case cmp > 0:
			copy(buf[writeBase+k*bytesPerItem:], rrec)
			j++
		default:
			if reverse {
				copy(buf[writeBase+k*bytesPerItem:], rrec)
				flags[indexfile.GroupNumber(lrec)][indexfile.ItemNumber(lrec)] = flagfile.Duplicate
			} else {
				copy(buf[writeBase+k*bytesPerItem:], lrec)
				flags[indexfile.GroupNumber(rrec)][indexfile.ItemNumber(rrec)] = flagfile.Duplicate
			}
			i++
			j++
			numDeleted++
		}
		k++
	}
	for i < lLen {
		copy(buf[writeBase+k*bytesPerItem:], item(L, i))
		i++
		k++
	}
	for j < rLen {
		copy(buf[writeBase+k*bytesPerItem:], item(R, j))
		j++
		k++
	}

	groups[left].end = groups[left].begin + k
	return numDeleted
}

// unique recursively halves [left,right) into adjacent group pairs,
// uniques each half, then merges the two halves together, classic
// top-down merge sort over the groups array.
func unique(buf []byte, bytesPerItem int, groups []group, left, right int, flags [][]byte, reverse bool) int {
	if left+1 >= right {
		return 0
	}
	mid := (left + right) / 2
	numDeleted := unique(buf, bytesPerItem, groups, left, mid, flags, reverse)
	numDeleted += unique(buf, bytesPerItem, groups, mid, right, flags, reverse)
	numDeleted += mergePair(buf, bytesPerItem, groups, left, mid, flags, reverse)
	return numDeleted
}

// BandResult reports one merge band's before/after active counts across
// all groups, handed to the OnBand option so a caller can drive a live
// progress display without parsing log lines.
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

// Option configures an optional Run behavior.
type Option func(*runOptions)

type runOptions struct {
	onBand func(BandResult)
}

// WithOnBand registers a callback invoked after each merge band completes.
func WithOnBand(f func(BandResult)) Option {
	return func(o *runOptions) { o.onBand = f }
}

// Run merges every source's index across bands [start,end), loading and
// saving each source's `.dup`/`.dup.merge` flag file.
func Run(logger *slog.Logger, sources []string, reverse bool, start, end int, opts ...Option) error {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}
	overallStart := time.Now()
	logger.Info("reverse", "reverse", reverse)
	logger.Info("begin", "value", start)
	logger.Info("end", "value", end)

	g := len(sources)
	flags := make([][]byte, g)
	var numActiveStart, numOverallTotalItems int
	for i, src := range sources {
		filename := src + ".dup"
		f, err := flagfile.Load(filename)
		if err != nil {
			return fmt.Errorf("merge: load flags %s: %w", filename, err)
		}
		flags[i] = f
		numActiveStart += flagfile.CountActive(f)
		numOverallTotalItems += len(f)
		logger.Info("flag file loaded", "source", src, "active", flagfile.CountActive(f), "total", len(f))
	}
	logger.Info("merge scope", "num_active", numActiveStart, "num_total", numOverallTotalItems, "num_groups", g)

	numActiveBefore := numActiveStart
	for bn := start; bn < end; bn++ {
		bandStart := time.Now()
		for split := 0; split < dedup.NumSplits; split++ {
			if err := mergeBandSplit(sources, bn, uint8(split), flags, reverse); err != nil {
				return fmt.Errorf("merge: band %d split %02x: %w", bn, split, err)
			}
		}

		numActiveAfter := 0
		for _, f := range flags {
			numActiveAfter += flagfile.CountActive(f)
		}
		var activeRatio float64
		if numOverallTotalItems > 0 {
			activeRatio = float64(numActiveAfter) / float64(numOverallTotalItems)
		}
		elapsed := time.Since(bandStart)
		logger.Info("merge completed",
			"band", bn,
			"num_active_before", numActiveBefore,
			"num_active_after", numActiveAfter,
			"active_ratio", activeRatio,
			"time_seconds", elapsed.Seconds(),
		)
		if ro.onBand != nil {
			ro.onBand(BandResult{
				Band:            bn,
				TotalBands:      end - start,
				NumItems:        uint64(numOverallTotalItems),
				NumActiveBefore: uint64(numActiveBefore),
				NumActiveAfter:  uint64(numActiveAfter),
				NumDetected:     uint64(numActiveBefore - numActiveAfter),
				DetectionRatio:  1 - activeRatio,
				Elapsed:         elapsed,
			})
		}
		numActiveBefore = numActiveAfter
	}

	numActiveAfter := 0
	for i, src := range sources {
		filename := src + ".dup.merge"
		if err := flagfile.Save(filename, flags[i]); err != nil {
			return fmt.Errorf("merge: save flags %s: %w", filename, err)
		}
		logger.Info("save flags", "file", filename)
		numActiveAfter += flagfile.CountActive(flags[i])
	}

	var activeRatio float64
	if numOverallTotalItems > 0 {
		activeRatio = float64(numActiveAfter) / float64(numOverallTotalItems)
	}
	logger.Info("result",
		"num_active_before", numActiveStart,
		"num_active_after", numActiveAfter,
		"active_ratio", activeRatio,
		"time_seconds", time.Since(overallStart).Seconds(),
	)
	return nil
}

func mergeBandSplit(sources []string, bn int, split uint8, flags [][]byte, reverse bool) error {
	g := len(sources)
	groups := make([]group, g)
	begins := make([]int, g)
	var numActiveItems, numTotalItems int
	bytesPerBucket := -1

	for i, src := range sources {
		r, err := indexfile.Open(src, bn, split, true)
		if err != nil {
			return err
		}
		begins[i] = numActiveItems
		numActiveItems += int(r.NumActiveItems)
		numTotalItems += int(r.NumTotalItems)
		if bytesPerBucket == -1 {
			bytesPerBucket = r.BytesPerBucket
		} else if bytesPerBucket != r.BytesPerBucket {
			r.Close()
			return fmt.Errorf("merge: bytes_per_bucket mismatch in %s: %w", src, doubrierr.ErrConsistency)
		}
		r.Close()
	}

	bytesPerItem := 8 + bytesPerBucket
	buf := make([]byte, bytesPerItem*numActiveItems)

	for i, src := range sources {
		r, err := indexfile.Open(src, bn, split, true)
		if err != nil {
			return err
		}
		segment := buf[begins[i]*bytesPerItem : (begins[i]+int(r.NumActiveItems))*bytesPerItem]
		if err := r.ReadAll(segment); err != nil {
			r.Close()
			return err
		}
		r.Close()

		groups[i] = group{begin: begins[i], end: begins[i] + int(r.NumActiveItems)}
		for rec := 0; rec < groups[i].size(); rec++ {
			id := segment[rec*bytesPerItem : rec*bytesPerItem+8]
			indexfile.SetGroup(id, uint16(i))
		}
	}

	unique(buf, bytesPerItem, groups, 0, g, flags, reverse)
	return nil
}
