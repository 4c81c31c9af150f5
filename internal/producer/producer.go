// Package producer implements the MinHash producer interface: it streams
// JSONL documents through n-gram extraction and a seeded 64-bit hash family,
// emitting a minhashfile-formatted file. Field extraction prefers
// tidwall/gjson for speed, falling back to encoding/json only to diagnose a
// malformed line, and transparently decompresses gzip input.
package producer

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"

	"github.com/corpusdedup/doubri/internal/doubrierr"
	"github.com/corpusdedup/doubri/internal/minhashfile"
	"github.com/corpusdedup/doubri/internal/ngram"
)

// Config holds the producer's LSH and extraction parameters, matching the
// `minhash` CLI subcommand's flags.
type Config struct {
	NGram         int    // -n, n-gram width in Unicode code points
	NumHashValues int    // -b, rows per band
	Begin         int    // -e, first band number
	End           int    // -r, one past the last band number
	Field         string // -t, JSON text field name
}

const maxHashValue = ^uint64(0)

// Producer streams documents into a MinHash file, recovering locally from
// per-line JSON parse errors so the output item count matches the input
// line count.
type Producer struct {
	cfg       Config
	writer    *minhashfile.Writer
	errPath   string
	errFile   *os.File
	numItems  int
	numErrors int
}

// New creates path (the MinHash output file) and an associated producer.
func New(path string, cfg Config) (*Producer, error) {
	w, err := minhashfile.Create(path, 8, cfg.NumHashValues, cfg.Begin, cfg.End)
	if err != nil {
		return nil, err
	}
	return &Producer{cfg: cfg, writer: w, errPath: path + ".err"}, nil
}

// Run streams newline-delimited JSON documents from r, writing one bucket
// per line. It auto-detects gzip input via magic bytes.
func (p *Producer) Run(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1<<20)
	peek, err := br.Peek(2)
	if err == nil && len(peek) == 2 && peek[0] == 0x1f && peek[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("producer: open gzip stream: %w", err)
		}
		defer gz.Close()
		return p.consume(gz)
	}
	return p.consume(br)
}

func (p *Producer) consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for scanner.Scan() {
		if err := p.processLine(scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("producer: read input: %w", err)
	}
	return nil
}

func (p *Producer) processLine(line []byte) error {
	lineNo := p.numItems + 1
	text, parseErr := p.extractText(line, lineNo)
	if parseErr != nil {
		if err := p.recordParseError(line, lineNo, parseErr); err != nil {
			return err
		}
	}

	features := ngram.Extract(text, p.cfg.NGram)
	hashes := p.minHashBucket(features)
	if err := p.writer.Put(hashes); err != nil {
		return err
	}
	p.numItems++
	return nil
}

// extractText pulls the configured field out of one JSONL line. It tries
// gjson first (no allocation, no full parse); if the field is absent or the
// line is not valid JSON, it falls back to encoding/json to produce a
// descriptive error and otherwise treats the document as empty text.
func (p *Producer) extractText(line []byte, lineNo int) (string, error) {
	result := gjson.GetBytes(line, p.cfg.Field)
	if result.Exists() {
		return result.String(), nil
	}

	var doc map[string]any
	if err := json.Unmarshal(line, &doc); err != nil {
		return "", fmt.Errorf("line %d: %w: %v", lineNo, doubrierr.ErrParse, err)
	}
	if _, ok := doc[p.cfg.Field]; !ok {
		return "", fmt.Errorf("line %d: no %q field: %w", lineNo, p.cfg.Field, doubrierr.ErrParse)
	}
	return "", nil
}

func (p *Producer) recordParseError(line []byte, lineNo int, cause error) error {
	if p.errFile == nil {
		f, err := os.OpenFile(p.errPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("producer: open error log %s: %w", p.errPath, err)
		}
		p.errFile = f
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(p.errFile, "%s ERROR (at line %d): %v\n%s\n", timestamp, lineNo, cause, line); err != nil {
		return fmt.Errorf("producer: write error log: %w", err)
	}
	p.numErrors++
	return nil
}

// minHashBucket computes the (end-begin)*numHashValues minimum hash values
// across features, seeded per band b and row k as b*numHashValues+k. An
// empty feature set (short text or parse recovery) leaves every slot at
// maxHashValue, which encodes to the all-0xFF bucket.
func (p *Producer) minHashBucket(features map[string]struct{}) []uint64 {
	h := (p.cfg.End - p.cfg.Begin) * p.cfg.NumHashValues
	mins := make([]uint64, h)
	for i := range mins {
		mins[i] = maxHashValue
	}

	baseSeed := uint64(p.cfg.Begin * p.cfg.NumHashValues)
	for feature := range features {
		for i := 0; i < h; i++ {
			hv := seededHash(baseSeed+uint64(i), feature)
			if hv < mins[i] {
				mins[i] = hv
			}
		}
	}
	return mins
}

// seededHash combines a seed with a string's bytes through an xxhash
// digest, giving every (band, row) a distinct hash function over the same
// feature set.
func seededHash(seed uint64, s string) uint64 {
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], seed)
	d := xxhash.New()
	d.Write(seedBytes[:])
	d.Write([]byte(s))
	return d.Sum64()
}

// Close flushes and closes the MinHash output file and any open error log.
func (p *Producer) Close() error {
	var errFileErr error
	if p.errFile != nil {
		errFileErr = p.errFile.Close()
	}
	if err := p.writer.Close(); err != nil {
		return err
	}
	if errFileErr != nil {
		return fmt.Errorf("producer: close error log: %w", errFileErr)
	}
	return nil
}

// NumItems returns the number of documents written so far.
func (p *Producer) NumItems() int { return p.numItems }

// NumErrors returns the number of lines recovered from a parse error.
func (p *Producer) NumErrors() int { return p.numErrors }
