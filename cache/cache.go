// Package cache provides the entry cache used by the archive engine.
//
// Records are keyed by the archive's identity (a digest of its normalized
// path) and the entry name as stored in the container. A record's existence
// implies its bytes match the archive; the engine keeps that true by
// deleting records when it rewrites an archive. Changes made to an archive
// outside the engine are not detected.
package cache

// Cache stores extracted entry bytes.
//
// Implementations must be safe for concurrent use. Concurrent Puts of the
// same record may race; the last writer wins.
type Cache interface {
	// Get returns the cached bytes for the entry.
	// Returns nil, false if the entry is not cached.
	Get(archivePath, entryName string) ([]byte, bool)

	// Put stores the entry's bytes.
	Put(archivePath, entryName string, content []byte) error

	// Delete removes the entry's record. Missing records are not an error.
	Delete(archivePath, entryName string) error

	// Purge removes every record belonging to the archive.
	Purge(archivePath string) error
}
