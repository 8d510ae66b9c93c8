package arcentry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/arcentry/internal/format"
)

// tmpSuffix names the sibling file a rewrite is staged in.
const tmpSuffix = ".tmp"

// DeleteEntry removes entryName from the ZIP or CBZ archive at archivePath.
//
// The archive is copied entry by entry into archivePath+".tmp", skipping the
// named entry. Kept entries are copied with their original headers and
// compressed bytes, and the archive comment is carried over. The temp file replaces the archive only after the copy
// completes; on any failure it is removed and the archive is left untouched.
// On success the cached copy of the entry is dropped.
//
// Archives whose name does not end in .zip or .cbz are rejected with
// ErrUnsupportedOperation before any file is touched. If no entry matches,
// ErrEntryNotFound is returned and the archive is unchanged.
func (e *Engine) DeleteEntry(ctx context.Context, archivePath, entryName string) error {
	const op = "delete"

	if !isZipName(archivePath) {
		return wrapError(op, archivePath, entryName,
			fmt.Errorf("%s: %w", filepath.Ext(archivePath), ErrUnsupportedOperation))
	}
	if err := ctx.Err(); err != nil {
		return wrapError(op, archivePath, entryName, cancelled(err))
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return wrapError(op, archivePath, entryName, fmt.Errorf("%w: %w", ErrNotFound, err))
	}
	src, err := format.OpenZip(archivePath)
	if err != nil {
		return wrapError(op, archivePath, entryName, err)
	}

	tmp := archivePath + tmpSuffix
	w, err := e.openWriter(tmp, info.Mode().Perm())
	if err != nil {
		src.Close()
		return wrapError(op, archivePath, entryName, err)
	}

	found, err := e.copyExcept(ctx, src, w, entryName)
	if err == nil && !found {
		err = fmt.Errorf("%q: %w", entryName, ErrEntryNotFound)
	}
	if err != nil {
		_ = w.Close()
		src.Close()
		e.discard(tmp)
		if found {
			e.logger.Warn("entry deletion aborted",
				slog.String("archive", archivePath),
				slog.String("entry", entryName),
				slog.Any("error", err))
		}
		return wrapError(op, archivePath, entryName, err)
	}

	if err := w.Close(); err != nil {
		src.Close()
		e.discard(tmp)
		return wrapError(op, archivePath, entryName, fmt.Errorf("%w: %w", ErrIO, err))
	}
	src.Close()

	if err := os.Rename(tmp, archivePath); err != nil {
		e.discard(tmp)
		return wrapError(op, archivePath, entryName, fmt.Errorf("%w: %w", ErrIO, err))
	}

	if err := e.cache.Delete(archivePath, entryName); err != nil {
		e.logger.Warn("dropping cached entry failed",
			slog.String("archive", archivePath),
			slog.String("entry", entryName),
			slog.Any("error", err))
	}
	e.logger.Debug("deleted entry",
		slog.String("archive", archivePath),
		slog.String("entry", entryName))
	return nil
}

// copyExcept copies the comment and every entry of src except those named
// skip into w.
func (e *Engine) copyExcept(ctx context.Context, src *format.ZipReader, w format.Writer, skip string) (bool, error) {
	if err := w.SetComment(src.Comment()); err != nil {
		return false, fmt.Errorf("write comment: %w: %w", ErrIO, err)
	}
	buf := make([]byte, e.chunkSize)
	found := false
	for {
		if err := ctx.Err(); err != nil {
			return found, cancelled(err)
		}
		h, err := src.Next()
		if errors.Is(err, io.EOF) {
			return found, nil
		}
		if err != nil {
			return found, err
		}
		if h.Name == skip {
			found = true
			continue
		}
		if err := src.CopyRaw(ctx, w, buf); err != nil {
			return found, err
		}
	}
}

// ConvertToCBZ writes every entry of the archive at sourcePath, in order,
// into a new ZIP archive at destPath.
//
// Any readable format is accepted. ZIP sources are copied without
// recompressing and keep their archive comment; other sources are deflated. Directory entries are kept and
// nothing is renamed. The output is staged in destPath+".tmp" and renamed
// into place only when complete, so a failed conversion leaves destPath as
// it was. On success the cache records of destPath are purged.
func (e *Engine) ConvertToCBZ(ctx context.Context, sourcePath, destPath string) error {
	const op = "convert"

	if err := ctx.Err(); err != nil {
		return wrapError(op, sourcePath, "", cancelled(err))
	}
	r, err := format.Open(sourcePath)
	if err != nil {
		return wrapError(op, sourcePath, "", err)
	}

	tmp := destPath + tmpSuffix
	w, err := e.openWriter(tmp, 0o644)
	if err != nil {
		r.Close()
		return wrapError(op, sourcePath, "", err)
	}

	n, err := e.convert(ctx, r, w)
	if err != nil {
		_ = w.Close()
		r.Close()
		e.discard(tmp)
		e.logger.Warn("conversion aborted",
			slog.String("source", sourcePath),
			slog.String("dest", destPath),
			slog.Int("copied", n),
			slog.Any("error", err))
		return wrapError(op, sourcePath, "", err)
	}
	if err := w.Close(); err != nil {
		r.Close()
		e.discard(tmp)
		return wrapError(op, sourcePath, "", fmt.Errorf("%w: %w", ErrIO, err))
	}
	r.Close()

	if err := os.Rename(tmp, destPath); err != nil {
		e.discard(tmp)
		return wrapError(op, sourcePath, "", fmt.Errorf("%w: %w", ErrIO, err))
	}

	if err := e.cache.Purge(destPath); err != nil {
		e.logger.Warn("purging cache failed",
			slog.String("archive", destPath),
			slog.Any("error", err))
	}
	e.logger.Debug("converted archive",
		slog.String("source", sourcePath),
		slog.String("dest", destPath),
		slog.Int("entries", n))
	return nil
}

// convert copies all entries of r, and its comment if it has one, into w and
// returns how many entries were written.
func (e *Engine) convert(ctx context.Context, r format.Reader, w format.Writer) (int, error) {
	if c, ok := r.(format.Commenter); ok {
		if err := w.SetComment(c.Comment()); err != nil {
			return 0, fmt.Errorf("write comment: %w: %w", ErrIO, err)
		}
	}
	raw, isRaw := r.(format.RawCopier)
	buf := make([]byte, e.chunkSize)
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, cancelled(err)
		}
		h, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		if isRaw {
			if err := raw.CopyRaw(ctx, w, buf); err != nil {
				return n, err
			}
			n++
			continue
		}

		dst, err := w.Create(h)
		if err != nil {
			return n, fmt.Errorf("write header %s: %w: %w", h.Name, ErrIO, err)
		}
		if !h.IsDir {
			if _, err := format.CopyEntry(ctx, dst, r, buf); err != nil {
				return n, fmt.Errorf("copy %s: %w", h.Name, err)
			}
		}
		n++
	}
}

// discard removes a staged temp file, logging when that fails.
func (e *Engine) discard(tmp string) {
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("removing temp file failed",
			slog.String("path", tmp),
			slog.Any("error", err))
	}
}

func isZipName(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".zip" || ext == ".cbz"
}
