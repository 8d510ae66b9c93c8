// Package format provides sequential readers over archive containers and the
// ZIP writer used for rewrites.
//
// Every reader visits entries in container order. Payload bytes are only
// decoded when the caller reads the current entry; moving to the next entry
// skips whatever was left unread.
package format

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/meigma/arcentry/internal/archtype"
)

// Header is the entry description returned by Reader.Next.
type Header = archtype.Header

// Reader iterates the entries of an archive.
//
// Next advances to the following entry and returns io.EOF once the archive
// is exhausted. Read streams the payload of the current entry.
type Reader interface {
	Next() (*Header, error)
	Read(p []byte) (int, error)
	Close() error
}

// RawCopier is implemented by readers that can hand the current entry to a
// Writer without decoding it.
type RawCopier interface {
	CopyRaw(ctx context.Context, w Writer, buf []byte) error
}

// Commenter is implemented by readers whose container carries an archive
// comment.
type Commenter interface {
	Comment() string
}

// Open opens path with the reader matching its container format.
//
// The format is detected from the leading bytes of the file, falling back to
// the filename extension when the signature is not recognized.
func Open(path string) (Reader, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller supplied
	if err != nil {
		return nil, openError(err)
	}
	kind, err := Detect(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	switch kind {
	case Zip:
		return newZipReader(f)
	case Rar:
		// rardecode opens volumes itself.
		f.Close()
		return openRar(path)
	case SevenZip:
		f.Close()
		return openSevenZip(path)
	case Tar, TarGzip, TarZstd, TarBzip2:
		return newTarReader(f, kind)
	default:
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, archtype.ErrUnsupportedFormat)
	}
}

// OpenZip opens path as a ZIP archive regardless of its contents.
func OpenZip(path string) (*ZipReader, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller supplied
	if err != nil {
		return nil, openError(err)
	}
	return newZipReader(f)
}

// openError classifies a failure to open the archive file itself.
func openError(err error) error {
	return fmt.Errorf("%w: %w", archtype.ErrNotFound, err)
}

// corrupt marks err as a structural problem with the container.
func corrupt(err error) error {
	if errors.Is(err, archtype.ErrCorrupt) {
		return err
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %w", archtype.ErrCorrupt, err)
}

// isOpenFailure reports whether err came from opening a file on disk.
func isOpenFailure(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe) && pe.Op == "open"
}
