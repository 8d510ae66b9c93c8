package format

import (
	"errors"
	"io"

	"github.com/nwaples/rardecode/v2"

	"github.com/meigma/arcentry/internal/archtype"
)

// rarReader reads RAR (CBR) archives, including multi-volume sets.
type rarReader struct {
	rc *rardecode.ReadCloser
}

func openRar(path string) (Reader, error) {
	rc, err := rardecode.OpenReader(path)
	if err != nil {
		if isOpenFailure(err) {
			return nil, openError(err)
		}
		return nil, corrupt(err)
	}
	return &rarReader{rc: rc}, nil
}

func (r *rarReader) Next() (*Header, error) {
	fh, err := r.rc.Next()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, corrupt(err)
	}
	size := fh.UnPackedSize
	if fh.UnKnownSize {
		size = archtype.SizeUnknown
	}
	return &Header{
		Name:     fh.Name,
		Size:     size,
		Modified: fh.ModificationTime,
		Mode:     fh.Mode(),
		IsDir:    fh.IsDir,
	}, nil
}

func (r *rarReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, corrupt(err)
	}
	return n, err
}

func (r *rarReader) Close() error {
	return r.rc.Close()
}
