package arcentry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/arcentry/cache"
	"github.com/meigma/arcentry/cache/disk"
	"github.com/meigma/arcentry/config"
	"github.com/meigma/arcentry/internal/format"
)

// Engine lists, extracts and edits archive entries.
//
// An Engine is safe for concurrent use. Every call opens its own reader, so
// reads and listings of the same archive may overlap freely. Mutations of one
// archive must not overlap with each other.
type Engine struct {
	cache     cache.Cache
	cacheDir  string
	diskOpts  []disk.Option
	appName   string
	workers   int
	chunkSize int
	logger    *slog.Logger

	fills singleflight.Group
	sem   *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// openWriter creates rewrite targets; tests swap it to inject failures.
	openWriter func(path string, perm fs.FileMode) (format.Writer, error)
}

// New creates an Engine with the given options.
//
// Unless WithCache is given, a disk cache is created under WithCacheDir or,
// failing that, under the user cache directory.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		appName:    DefaultAppName,
		workers:    DefaultWorkers,
		chunkSize:  DefaultReadChunkSize,
		openWriter: format.CreateZip,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}

	if e.cache == nil {
		dir := e.cacheDir
		if dir == "" {
			root, err := DefaultCacheDir(e.appName)
			if err != nil {
				return nil, err
			}
			dir = root
		}
		dc, err := disk.New(dir, e.diskOpts...)
		if err != nil {
			return nil, fmt.Errorf("arcentry: create cache: %w", err)
		}
		e.cache = dc
		e.cacheDir = dir
	}

	e.sem = semaphore.NewWeighted(int64(e.workers))
	e.logger.Debug("engine ready",
		slog.String("cache_dir", e.cacheDir),
		slog.Int("workers", e.workers),
		slog.Int("read_chunk_size", e.chunkSize))
	return e, nil
}

// NewFromConfig creates an Engine from a loaded configuration file.
// Options in opts are applied after the configuration and win over it.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	var base []Option
	if cfg != nil {
		if cfg.AppName != "" {
			base = append(base, WithAppName(cfg.AppName))
		}
		if cfg.CacheDir != "" {
			dir, err := config.ExpandPath(cfg.CacheDir)
			if err != nil {
				return nil, fmt.Errorf("arcentry: cache_dir: %w", err)
			}
			base = append(base, WithCacheDir(dir))
		}
		if cfg.Workers != 0 {
			base = append(base, WithWorkers(cfg.Workers))
		}
		if cfg.ReadChunkSize != 0 {
			base = append(base, WithReadChunkSize(cfg.ReadChunkSize))
		}
	}
	return New(append(base, opts...)...)
}

// DefaultCacheDir returns the cache root used when no directory is configured.
func DefaultCacheDir(appName string) (string, error) {
	root, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("arcentry: locate user cache dir: %w", err)
	}
	return filepath.Join(root, appName, "archives"), nil
}

// CacheDir returns the disk cache directory, or "" when a custom cache was
// supplied with WithCache.
func (e *Engine) CacheDir() string {
	return e.cacheDir
}

// Close waits for in-flight async reads. Async reads submitted afterwards
// resolve with ErrClosed. Synchronous calls keep working.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

// track registers one background job; it fails once the engine is closed.
func (e *Engine) track() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	return true
}
