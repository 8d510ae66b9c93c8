package arcentry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/meigma/arcentry/cache"
	"github.com/meigma/arcentry/cache/disk"
)

// Option configures an Engine.
type Option func(*Engine) error

// Defaults applied by New.
const (
	DefaultAppName       = "brighteyes"
	DefaultWorkers       = 4
	DefaultReadChunkSize = 8 << 10 // 8 KiB
)

// --- Cache Options ---

// WithCache sets the entry cache. It takes precedence over WithCacheDir.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) error {
		if c == nil {
			return errors.New("arcentry: nil cache")
		}
		e.cache = c
		return nil
	}
}

// WithCacheDir stores extracted entries on disk under dir.
//
// Without it the engine uses os.UserCacheDir()/<app name>/archives.
func WithCacheDir(dir string) Option {
	return func(e *Engine) error {
		if dir == "" {
			return errors.New("arcentry: empty cache directory")
		}
		e.cacheDir = dir
		return nil
	}
}

// WithCachePerm sets the permissions of the directories and files the disk
// cache creates. Defaults to 0700 and 0600. Both must leave the owner able to
// read and write; dirPerm must also leave the owner able to traverse.
//
// It has no effect together with WithCache.
func WithCachePerm(dirPerm, filePerm fs.FileMode) Option {
	return func(e *Engine) error {
		if dirPerm&^fs.ModePerm != 0 || dirPerm&0o700 != 0o700 {
			return fmt.Errorf("arcentry: cache dir perm %o lacks owner rwx", dirPerm)
		}
		if filePerm&^fs.ModePerm != 0 || filePerm&0o600 != 0o600 {
			return fmt.Errorf("arcentry: cache file perm %o lacks owner rw", filePerm)
		}
		e.diskOpts = []disk.Option{disk.WithDirPerm(dirPerm), disk.WithFilePerm(filePerm)}
		return nil
	}
}

// WithAppName sets the application directory used for the default cache root.
func WithAppName(name string) Option {
	return func(e *Engine) error {
		if name == "" {
			return errors.New("arcentry: empty app name")
		}
		e.appName = name
		return nil
	}
}

// --- Execution Options ---

// WithWorkers bounds how many async reads and prefetches run at once.
func WithWorkers(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("arcentry: workers must be positive, got %d", n)
		}
		e.workers = n
		return nil
	}
}

// WithReadChunkSize sets the block size used when streaming entry data.
func WithReadChunkSize(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("arcentry: read chunk size must be positive, got %d", n)
		}
		e.chunkSize = n
		return nil
	}
}

// --- Logging Options ---

// WithLogger sets the logger for engine diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}
