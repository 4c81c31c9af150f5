// Package flagfile loads and saves the per-document duplicate flag vector:
// a raw byte-per-document file with no header, using the ' '/'D'/'d'
// alphabet described in the group deduplicator and cross-group merger.
package flagfile

import (
	"fmt"
	"os"
)

// Flag byte values. Active means "not yet known to be a duplicate". Local is
// used only while one band is in progress and must be promoted to Duplicate
// before the flag vector is persisted.
const (
	Active    byte = ' '
	Duplicate byte = 'D'
	Local     byte = 'd'
)

// Load reads the entire contents of filename as a flag vector.
func Load(filename string) ([]byte, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("flagfile: load %s: %w", filename, err)
	}
	return b, nil
}

// Save writes flags to filename in one call, overwriting any existing file.
func Save(filename string, flags []byte) error {
	if err := os.WriteFile(filename, flags, 0o644); err != nil {
		return fmt.Errorf("flagfile: save %s: %w", filename, err)
	}
	return nil
}

// CountActive returns the number of Active bytes in flags.
func CountActive(flags []byte) int {
	n := 0
	for _, f := range flags {
		if f == Active {
			n++
		}
	}
	return n
}

// PromoteLocal rewrites every Local byte to Duplicate, the end-of-band
// promotion step that upgrades this band's findings to a globally committed
// duplicate marking.
func PromoteLocal(flags []byte) {
	for i, f := range flags {
		if f == Local {
			flags[i] = Duplicate
		}
	}
}
