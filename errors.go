package arcentry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meigma/arcentry/internal/archtype"
)

// Errors re-exported from archtype.
var (
	// ErrNotFound is returned when the archive file is missing or cannot be opened.
	ErrNotFound = archtype.ErrNotFound

	// ErrCorrupt is returned when the container is structurally invalid or an
	// entry cannot be decoded.
	ErrCorrupt = archtype.ErrCorrupt

	// ErrEntryNotFound is returned when no entry in the archive has the requested name.
	ErrEntryNotFound = archtype.ErrEntryNotFound

	// ErrUnsupportedFormat is returned when the container format is not recognized.
	ErrUnsupportedFormat = archtype.ErrUnsupportedFormat

	// ErrUnsupportedOperation is returned when a mutation targets a non-ZIP archive.
	ErrUnsupportedOperation = archtype.ErrUnsupportedOperation

	// ErrIO is returned for filesystem write and rename failures.
	ErrIO = archtype.ErrIO

	// ErrCancelled is returned when the caller's context was done.
	ErrCancelled = archtype.ErrCancelled

	// ErrSizeUnknown is returned by EntrySize when the container records no size.
	ErrSizeUnknown = archtype.ErrSizeUnknown
)

// ErrClosed is returned for async work submitted after Engine.Close.
var ErrClosed = errors.New("arcentry: engine closed")

// kinds is checked in order; the first match becomes Error.Kind.
var kinds = []error{
	ErrClosed,
	ErrCancelled,
	ErrUnsupportedOperation,
	ErrUnsupportedFormat,
	ErrNotFound,
	ErrEntryNotFound,
	ErrSizeUnknown,
	ErrCorrupt,
	ErrIO,
}

// Error describes a failed engine operation.
//
// Kind is one of the sentinel errors of this package. Err is the underlying
// cause. Both are reachable through errors.Is and errors.As.
type Error struct {
	Op    string // operation, such as "read" or "delete"
	Path  string // archive path
	Entry string // entry name, empty for archive-level operations
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Entry != "" {
		b.WriteString(" [")
		b.WriteString(e.Entry)
		b.WriteString("]")
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

// Unwrap exposes the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// wrapError classifies err and attaches operation context. Errors that are
// already *Error pass through unchanged.
func wrapError(op, path, entry string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Op: op, Path: path, Entry: entry, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCancelled
	}
	return ErrIO
}

// cancelled converts a context error into an ErrCancelled failure.
func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
