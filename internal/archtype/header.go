// Package archtype holds types shared by the engine and its format readers.
package archtype

import (
	"io/fs"
	"time"
)

// SizeUnknown marks a Header whose container did not declare the entry size.
const SizeUnknown int64 = -1

// Header describes one entry as recorded in the container.
type Header struct {
	// Name is the entry path inside the archive, slash separated.
	Name string

	// Size is the declared uncompressed size, or SizeUnknown.
	Size int64

	Modified time.Time
	Mode     fs.FileMode
	IsDir    bool
}

// SizeKnown reports whether the container declared the entry size.
func (h *Header) SizeKnown() bool {
	return h.Size >= 0
}
