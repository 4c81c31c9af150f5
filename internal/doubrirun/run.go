// Package doubrirun assigns a per-invocation run identifier so a single
// dedup or merge invocation's console log, file log, and optional status
// dashboard can be correlated, following the rest of the retrieval pack's
// use of google/uuid for session/run IDs (e.g. rpcpool-yellowstone-faithful's
// cmd-version.go and fetch-util.go).
package doubrirun

import "github.com/google/uuid"

// NewID returns a fresh run identifier, a random UUIDv4 string.
func NewID() string {
	return uuid.NewString()
}
