package format

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/arcentry/internal/archtype"
)

// DefaultChunkSize is the read size used when streaming entry payloads.
const DefaultChunkSize = 8 << 10

// CopyEntry streams src into dst in len(buf) chunks until src is exhausted,
// checking ctx between chunks. It returns the number of bytes written.
//
// Read failures are reported as archtype.ErrCorrupt, write failures as
// archtype.ErrIO and cancellation as archtype.ErrCancelled, so callers can
// tell a damaged archive from a full disk.
//
//nolint:gocognit // Follows stdlib io.Copy pattern; complexity is inherent to correct I/O handling
func CopyEntry(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, DefaultChunkSize)
	}
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("%w: %w", archtype.ErrCancelled, err)
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if ew != nil {
				return written, fmt.Errorf("%w: %w", archtype.ErrIO, ew)
			}
			if nw != nr {
				return written, fmt.Errorf("%w: %w", archtype.ErrIO, io.ErrShortWrite)
			}
		}
		if er != nil {
			if errors.Is(er, io.EOF) {
				return written, nil
			}
			return written, corrupt(er)
		}
	}
}
