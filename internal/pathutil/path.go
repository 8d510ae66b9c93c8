// Package pathutil provides name handling for slash-separated archive entry names.
package pathutil

import "strings"

// imageSuffixes are matched against lower-cased entry names.
var imageSuffixes = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".svg", ".webp"}

// IsImage reports whether name ends with a recognized image suffix,
// ignoring case. Hidden entries and directories are not special-cased.
func IsImage(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, ext := range imageSuffixes {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
