package archtype

import "errors"

// Sentinel errors for archive operations. Each one names a failure kind;
// callers match them with errors.Is.
var (
	// ErrNotFound is returned when the archive file is missing or cannot be opened.
	ErrNotFound = errors.New("arcentry: archive not found")

	// ErrCorrupt is returned when the container is structurally invalid.
	ErrCorrupt = errors.New("arcentry: archive corrupt")

	// ErrEntryNotFound is returned when the named entry is absent from the archive.
	ErrEntryNotFound = errors.New("arcentry: entry not found")

	// ErrUnsupportedFormat is returned when the container format is not recognized.
	ErrUnsupportedFormat = errors.New("arcentry: unsupported archive format")

	// ErrUnsupportedOperation is returned when a mutation targets a non-ZIP archive.
	ErrUnsupportedOperation = errors.New("arcentry: unsupported operation")

	// ErrIO is returned for filesystem read, write and rename failures.
	ErrIO = errors.New("arcentry: i/o failure")

	// ErrCancelled is returned when an operation's context was cancelled.
	ErrCancelled = errors.New("arcentry: cancelled")

	// ErrSizeUnknown is returned when the container does not record an entry's size.
	ErrSizeUnknown = errors.New("arcentry: entry size unknown")
)
