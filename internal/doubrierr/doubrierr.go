// Package doubrierr defines the sentinel error kinds shared across doubri's
// core packages, mirroring the IoError/FormatError/ConsistencyError/
// RangeError/ParseError taxonomy of the original dedup engine.
package doubrierr

import "errors"

var (
	// ErrFormat signals a magic mismatch, unknown sector size, or other
	// header parse failure in an on-disk file.
	ErrFormat = errors.New("doubri: format error")

	// ErrConsistency signals mismatched parameters (bytes_per_hash,
	// num_hash_values, begin, end, bytes_per_bucket) across inputs that
	// must agree.
	ErrConsistency = errors.New("doubri: consistency error")

	// ErrRange signals that a value cannot be represented in its on-disk
	// width, e.g. an ordinal at or beyond 2^48.
	ErrRange = errors.New("doubri: range error")

	// ErrParse signals a JSONL line that could not be parsed. The producer
	// recovers from this locally; it is never fatal there.
	ErrParse = errors.New("doubri: parse error")
)
