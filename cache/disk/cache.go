// Package disk provides a disk-backed entry cache.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/meigma/arcentry/cache"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

// ErrUnsafeName is returned when an entry name cannot be stored as its own
// file: it would resolve outside the archive's cache directory, or another
// spelling of it names the same file.
var ErrUnsafeName = errors.New("cache: entry name has no unique cache path")

// Cache implements cache.Cache using the local filesystem.
//
// Records live at <dir>/<identity>/<entry-name>, where identity is
// cache.Identity of the archive path. The cache is safe for concurrent use.
type Cache struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var _ cache.Cache = (*Cache)(nil)

// Option configures a disk cache.
type Option func(*Cache)

// WithDirPerm sets the permissions used for cache directories. Defaults to 0700.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// WithFilePerm sets the permissions used for cache files. Defaults to 0600.
func WithFilePerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.filePerm = mode
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the file that holds the record for the entry.
//
// Only names already in clean slash form are accepted, so no two distinct
// entry names share a record. "a.jpg", "./a.jpg" and "x/../a.jpg" are
// different entries and only the first is cacheable.
func (c *Cache) Path(archivePath, entryName string) (string, error) {
	if !cacheable(entryName) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, entryName)
	}
	return filepath.Join(c.namespace(archivePath), filepath.FromSlash(entryName)), nil
}

func cacheable(name string) bool {
	if name != path.Clean(name) {
		return false
	}
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(name))
}

// Get returns the cached bytes for the entry.
func (c *Cache) Get(archivePath, entryName string) ([]byte, bool) {
	file, err := c.Path(archivePath, entryName)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(file) //nolint:gosec // file is confined to the cache root
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores content for the entry, replacing any existing record.
// Content is written to a temp file and renamed into place.
func (c *Cache) Put(archivePath, entryName string, content []byte) error {
	file, err := c.Path(archivePath, entryName)
	if err != nil {
		return err
	}

	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if c.filePerm != defaultFilePerm {
		if err := os.Chmod(tmpPath, c.filePerm); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
	}
	if err := os.Rename(tmpPath, file); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Delete removes the record for the entry if present.
func (c *Cache) Delete(archivePath, entryName string) error {
	file, err := c.Path(archivePath, entryName)
	if err != nil {
		// Nothing unsafe was ever written.
		return nil
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Purge removes every record for the archive.
func (c *Cache) Purge(archivePath string) error {
	return os.RemoveAll(c.namespace(archivePath))
}

// SizeBytes walks the cache root and returns the total size of cached files.
func (c *Cache) SizeBytes() (int64, error) {
	return dirSize(c.dir)
}

func (c *Cache) namespace(archivePath string) string {
	return filepath.Join(c.dir, cache.Identity(archivePath))
}
