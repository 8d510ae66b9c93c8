package arcentry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/arcentry/internal/format"
)

// maxPrealloc caps how much of a declared entry size is reserved up front.
const maxPrealloc = 64 << 20

// ReadEntry returns the full contents of entryName in the archive at
// archivePath.
//
// The cache is consulted first; a hit never touches the archive. On a miss
// the archive is scanned for an entry whose name equals entryName byte for
// byte and its data is streamed into memory in fixed-size chunks, then
// stored in the cache. A failure to store is logged and otherwise ignored.
//
// Concurrent misses for the same entry share a single extraction.
func (e *Engine) ReadEntry(archivePath, entryName string) ([]byte, error) {
	const op = "read"

	if data, ok := e.cache.Get(archivePath, entryName); ok {
		e.logger.Debug("entry cache hit",
			slog.String("archive", archivePath),
			slog.String("entry", entryName))
		return data, nil
	}

	v, err, shared := e.fills.Do(fillKey(archivePath, entryName), func() (any, error) {
		// Another caller may have filled the cache since the check above.
		if data, ok := e.cache.Get(archivePath, entryName); ok {
			return data, nil
		}
		e.logger.Debug("entry cache miss",
			slog.String("archive", archivePath),
			slog.String("entry", entryName))

		data, err := e.extract(archivePath, entryName)
		if err != nil {
			return nil, err
		}
		if err := e.cache.Put(archivePath, entryName, data); err != nil {
			e.logger.Warn("caching entry failed",
				slog.String("archive", archivePath),
				slog.String("entry", entryName),
				slog.Any("error", err))
		}
		return data, nil
	})
	if err != nil {
		return nil, wrapError(op, archivePath, entryName, err)
	}

	data, _ := v.([]byte) //nolint:errcheck // type assertion always succeeds when err is nil
	if shared {
		data = bytes.Clone(data)
	}
	return data, nil
}

// extract scans the archive for entryName and reads it fully.
func (e *Engine) extract(archivePath, entryName string) ([]byte, error) {
	r, err := format.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	h, err := seek(r, entryName)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if h.SizeKnown() && h.Size > 0 && h.Size <= maxPrealloc {
		out.Grow(int(h.Size))
	}
	buf := make([]byte, e.chunkSize)
	if _, err := format.CopyEntry(context.Background(), &out, r, buf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EntrySize returns the uncompressed size of entryName as declared by the
// container. It neither reads entry data nor consults the cache.
func (e *Engine) EntrySize(archivePath, entryName string) (uint64, error) {
	const op = "size"

	r, err := format.Open(archivePath)
	if err != nil {
		return 0, wrapError(op, archivePath, entryName, err)
	}
	defer r.Close()

	h, err := seek(r, entryName)
	if err != nil {
		return 0, wrapError(op, archivePath, entryName, err)
	}
	if !h.SizeKnown() {
		return 0, wrapError(op, archivePath, entryName, ErrSizeUnknown)
	}
	return uint64(h.Size), nil
}

// Prefetch reads entryNames into the cache, running up to the configured
// number of workers at once. It returns the first error encountered.
func (e *Engine) Prefetch(ctx context.Context, archivePath string, entryNames ...string) error {
	const op = "prefetch"

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, name := range entryNames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return wrapError(op, archivePath, name, cancelled(err))
			}
			_, err := e.ReadEntry(archivePath, name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.logger.Debug("prefetched entries",
		slog.String("archive", archivePath),
		slog.Int("count", len(entryNames)))
	return nil
}

// seek advances r to the first entry named name.
func seek(r format.Reader, name string) (*format.Header, error) {
	for {
		h, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%q: %w", name, ErrEntryNotFound)
		}
		if err != nil {
			return nil, err
		}
		if h.Name == name {
			return h, nil
		}
	}
}

func fillKey(archivePath, entryName string) string {
	return archivePath + "\x00" + entryName
}
