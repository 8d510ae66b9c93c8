package format

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/arcentry/internal/archtype"
)

// ZipReader reads a ZIP archive entry by entry in central directory order.
type ZipReader struct {
	file *os.File
	zr   *zip.Reader
	idx  int
	cur  io.ReadCloser
	err  error
}

var (
	_ RawCopier = (*ZipReader)(nil)
	_ Commenter = (*ZipReader)(nil)
)

func newZipReader(f *os.File) (*ZipReader, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, openError(err)
	}
	// ErrInsecurePath comes with a usable reader; names are matched verbatim.
	zr, err := zip.NewReader(f, info.Size())
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		f.Close()
		return nil, fmt.Errorf("open zip archive: %w", corrupt(err))
	}
	registerZipDecompressors(zr)
	return &ZipReader{file: f, zr: zr, idx: -1}, nil
}

// registerZipDecompressors swaps in klauspost's flate and adds zstd (method 93).
func registerZipDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
}

// Comment returns the archive comment.
func (r *ZipReader) Comment() string {
	return r.zr.Comment
}

// Len returns the number of entries recorded in the central directory.
func (r *ZipReader) Len() int {
	return len(r.zr.File)
}

// Next implements Reader.
func (r *ZipReader) Next() (*Header, error) {
	r.closeCurrent()
	r.idx++
	if r.idx >= len(r.zr.File) {
		return nil, io.EOF
	}
	return zipHeader(&r.zr.File[r.idx].FileHeader), nil
}

// Read implements Reader. The entry is decompressed on first use.
func (r *ZipReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.idx < 0 || r.idx >= len(r.zr.File) {
		return 0, io.EOF
	}
	if r.cur == nil {
		rc, err := r.zr.File[r.idx].Open()
		if err != nil {
			r.err = corrupt(err)
			return 0, r.err
		}
		r.cur = rc
	}
	return r.cur.Read(p)
}

// CopyRaw writes the current entry to w with its original header and
// compressed bytes, streamed in len(buf) blocks.
func (r *ZipReader) CopyRaw(ctx context.Context, w Writer, buf []byte) error {
	if r.idx < 0 || r.idx >= len(r.zr.File) {
		return fmt.Errorf("copy raw: %w", archtype.ErrEntryNotFound)
	}
	f := r.zr.File[r.idx]
	raw, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("open raw %s: %w", f.Name, corrupt(err))
	}
	fh := f.FileHeader
	dst, err := w.CreateRaw(&fh)
	if err != nil {
		return fmt.Errorf("write header %s: %w: %w", f.Name, archtype.ErrIO, err)
	}
	if _, err := CopyEntry(ctx, dst, raw, buf); err != nil {
		return fmt.Errorf("copy %s: %w", f.Name, err)
	}
	return nil
}

// Close implements Reader.
func (r *ZipReader) Close() error {
	r.closeCurrent()
	return r.file.Close()
}

func (r *ZipReader) closeCurrent() {
	if r.cur != nil {
		_ = r.cur.Close()
		r.cur = nil
	}
	r.err = nil
}

func zipHeader(fh *zip.FileHeader) *Header {
	info := fh.FileInfo()
	size := archtype.SizeUnknown
	if fh.UncompressedSize64 <= math.MaxInt64 {
		size = int64(fh.UncompressedSize64)
	}
	return &Header{
		Name:     fh.Name,
		Size:     size,
		Modified: fh.Modified,
		Mode:     info.Mode(),
		IsDir:    info.IsDir(),
	}
}
