package format

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/meigma/arcentry/internal/archtype"
)

// Writer emits a ZIP archive entry by entry.
//
// CreateRaw and Create write the entry header; the returned io.Writer
// receives the entry payload until the next Create call or Close.
type Writer interface {
	// CreateRaw starts an entry whose payload is already encoded as fh describes.
	CreateRaw(fh *zip.FileHeader) (io.Writer, error)

	// Create starts an entry whose payload is deflated by the writer.
	Create(h *Header) (io.Writer, error)

	// SetComment sets the archive comment written by Close.
	SetComment(comment string) error

	// Close writes the central directory and closes the destination file.
	Close() error
}

type zipWriter struct {
	file *os.File
	zw   *zip.Writer
}

// CreateZip creates (or truncates) path and returns a Writer targeting it.
func CreateZip(path string, perm fs.FileMode) (Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // path is derived from the archive path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", archtype.ErrIO, err)
	}
	// OpenFile leaves the mode of a pre-existing file alone.
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", archtype.ErrIO, err)
	}
	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	return &zipWriter{file: f, zw: zw}, nil
}

func (w *zipWriter) CreateRaw(fh *zip.FileHeader) (io.Writer, error) {
	return w.zw.CreateRaw(fh)
}

func (w *zipWriter) Create(h *Header) (io.Writer, error) {
	fh := &zip.FileHeader{
		Name:     h.Name,
		Method:   zip.Deflate,
		Modified: h.Modified,
	}
	fh.SetMode(h.Mode)
	if h.IsDir {
		fh.Method = zip.Store
		if !strings.HasSuffix(fh.Name, "/") {
			fh.Name += "/"
		}
	}
	return w.zw.CreateHeader(fh)
}

func (w *zipWriter) SetComment(comment string) error {
	return w.zw.SetComment(comment)
}

// Close flushes the zip writer first, then syncs and closes the file.
func (w *zipWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("closing zip writer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("syncing zip file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing zip file: %w", err)
	}
	return nil
}
