package format

import (
	"errors"
	"io"
	"math"

	"github.com/bodgit/sevenzip"

	"github.com/meigma/arcentry/internal/archtype"
)

// sevenZipReader walks a 7z (CB7) archive's file list in stored order.
// Files are opened in sequence so solid blocks are decoded once.
type sevenZipReader struct {
	rc  *sevenzip.ReadCloser
	idx int
	cur io.ReadCloser
	err error
}

func openSevenZip(path string) (Reader, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		if isOpenFailure(err) {
			return nil, openError(err)
		}
		return nil, corrupt(err)
	}
	return &sevenZipReader{rc: rc, idx: -1}, nil
}

func (r *sevenZipReader) Next() (*Header, error) {
	r.closeCurrent()
	r.idx++
	if r.idx >= len(r.rc.File) {
		return nil, io.EOF
	}
	f := r.rc.File[r.idx]
	info := f.FileInfo()
	size := archtype.SizeUnknown
	if f.UncompressedSize <= math.MaxInt64 {
		size = int64(f.UncompressedSize)
	}
	return &Header{
		Name:     f.Name,
		Size:     size,
		Modified: f.Modified,
		Mode:     info.Mode(),
		IsDir:    info.IsDir(),
	}, nil
}

func (r *sevenZipReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.idx < 0 || r.idx >= len(r.rc.File) {
		return 0, io.EOF
	}
	if r.cur == nil {
		rc, err := r.rc.File[r.idx].Open()
		if err != nil {
			r.err = corrupt(err)
			return 0, r.err
		}
		r.cur = rc
	}
	n, err := r.cur.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, corrupt(err)
	}
	return n, err
}

func (r *sevenZipReader) Close() error {
	r.closeCurrent()
	return r.rc.Close()
}

func (r *sevenZipReader) closeCurrent() {
	if r.cur != nil {
		_ = r.cur.Close()
		r.cur = nil
	}
	r.err = nil
}
