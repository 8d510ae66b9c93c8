package format

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// tarReader reads plain and compressed tar streams. Only regular files and
// directories are surfaced; links, devices and pax global headers are skipped.
type tarReader struct {
	file    *os.File
	tr      *tar.Reader
	release func() error
}

func newTarReader(f *os.File, kind Kind) (Reader, error) {
	var (
		src     io.Reader = f
		release           = func() error { return nil }
	)
	switch kind {
	case TarGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream: %w", corrupt(err))
		}
		src, release = zr, zr.Close
	case TarZstd:
		dec, put, err := getDecoder(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd stream: %w", corrupt(err))
		}
		src, release = dec, func() error { put(); return nil }
	case TarBzip2:
		src = bzip2.NewReader(f)
	}
	return &tarReader{file: f, tr: tar.NewReader(src), release: release}, nil
}

func (r *tarReader) Next() (*Header, error) {
	for {
		hdr, err := r.tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, corrupt(err)
		}
		switch hdr.Typeflag {
		case tar.TypeReg, tar.TypeDir:
		default:
			continue
		}
		info := hdr.FileInfo()
		return &Header{
			Name:     hdr.Name,
			Size:     hdr.Size,
			Modified: hdr.ModTime,
			Mode:     info.Mode(),
			IsDir:    info.IsDir(),
		}, nil
	}
}

func (r *tarReader) Read(p []byte) (int, error) {
	n, err := r.tr.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, corrupt(err)
	}
	return n, err
}

func (r *tarReader) Close() error {
	relErr := r.release()
	if err := r.file.Close(); err != nil {
		return err
	}
	return relErr
}

var _ Reader = (*tarReader)(nil)
