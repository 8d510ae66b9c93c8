// Package vpath formats and parses virtual paths that address one entry
// inside an archive, in the form "archive://<archive path>::<entry name>".
package vpath

import (
	"errors"
	"path/filepath"
	"strings"
)

// Scheme prefixes every virtual path.
const Scheme = "archive://"

// Separator splits the archive path from the entry name.
const Separator = "::"

// ErrNotVirtual is returned by Parse for strings without the archive scheme
// or separator.
var ErrNotVirtual = errors.New("vpath: not an archive virtual path")

// archiveExtensions lists the extensions browsed as archives.
var archiveExtensions = map[string]bool{
	".cbz": true,
	".cbr": true,
	".cb7": true,
	".cbt": true,
	".zip": true,
	".rar": true,
	".7z":  true,
	".tar": true,
}

// Format builds the virtual path for entryName inside archivePath.
func Format(archivePath, entryName string) string {
	return Scheme + archivePath + Separator + entryName
}

// Parse splits a virtual path into its archive path and entry name. The
// first separator wins, so entry names may themselves contain "::".
func Parse(virtual string) (archivePath, entryName string, err error) {
	rest, ok := strings.CutPrefix(virtual, Scheme)
	if !ok {
		return "", "", ErrNotVirtual
	}
	archivePath, entryName, ok = strings.Cut(rest, Separator)
	if !ok || archivePath == "" {
		return "", "", ErrNotVirtual
	}
	return archivePath, entryName, nil
}

// IsVirtual reports whether s uses the archive scheme.
func IsVirtual(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// IsArchive reports whether path has a browsable archive extension,
// ignoring case.
func IsArchive(path string) bool {
	return archiveExtensions[strings.ToLower(filepath.Ext(path))]
}
