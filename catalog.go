package arcentry

import (
	"errors"
	"io"
	"log/slog"

	"github.com/meigma/arcentry/internal/format"
	"github.com/meigma/arcentry/internal/pathutil"
)

// ListImageEntries returns the names of the image entries in the archive at
// archivePath, in natural order.
//
// An entry is an image when its name ends in .jpg, .jpeg, .png, .bmp, .gif,
// .tiff, .svg or .webp, ignoring case. Entry payloads are not read. The list
// is rebuilt on every call. If the archive is damaged part way through, no
// partial list is returned.
func (e *Engine) ListImageEntries(archivePath string) ([]string, error) {
	const op = "list"

	r, err := format.Open(archivePath)
	if err != nil {
		return nil, wrapError(op, archivePath, "", err)
	}
	defer r.Close()

	names := make([]string, 0, 64)
	scanned := 0
	for {
		h, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapError(op, archivePath, "", err)
		}
		scanned++
		if h.IsDir || !pathutil.IsImage(h.Name) {
			continue
		}
		names = append(names, h.Name)
	}
	pathutil.SortNatural(names)

	e.logger.Debug("listed archive",
		slog.String("archive", archivePath),
		slog.Int("entries", scanned),
		slog.Int("images", len(names)))
	return names, nil
}
