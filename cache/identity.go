package cache

import (
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// Identity returns the cache namespace for an archive: the hex SHA-256
// digest of its absolute, cleaned path.
func Identity(archivePath string) string {
	return digest.SHA256.FromString(Normalize(archivePath)).Encoded()
}

// Normalize returns the absolute, cleaned form of archivePath. If the working
// directory cannot be resolved the cleaned relative path is returned.
func Normalize(archivePath string) string {
	if abs, err := filepath.Abs(archivePath); err == nil {
		return abs
	}
	return filepath.Clean(archivePath)
}
