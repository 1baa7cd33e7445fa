// Package diskcache persists named blobs for the router's embedding cache.
//
// A Store only moves bytes; Marshal and Unmarshal pick an encoding from the
// blob name so the same record can live as JSON, CBOR or zstd-compressed
// variants of either.
package diskcache

import "errors"

// ErrNotFound is returned by Read when no blob exists under the name.
var ErrNotFound = errors.New("diskcache: not found")

// Store reads and writes named blobs. Writes replace the previous blob
// atomically: a concurrent or crashed writer never leaves a partial blob.
// Remove of an absent name is not an error.
type Store interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Remove(name string) error
}

// Locator is implemented by stores that can report where a blob lives.
type Locator interface {
	Location(name string) string
}
