package arcentry

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arcentry/cache/disk"
	"github.com/meigma/arcentry/config"
	"github.com/meigma/arcentry/internal/testutil"
)

// newTestEngine returns an engine backed by an in-memory cache.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *testutil.MockCache) {
	t.Helper()

	mc := testutil.NewMockCache()
	e, err := New(append([]Option{WithCache(mc)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, mc
}

// newDiskEngine returns an engine with a disk cache under a temp dir.
func newDiskEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(WithCacheDir(filepath.Join(t.TempDir(), "cache")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// writeBook writes a CBZ of generated pages and returns its path.
func writeBook(t *testing.T, name string, pages ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	testutil.WriteZip(t, path, testutil.Pages(pages...))
	return path
}

// copyFixture copies a committed archive from internal/format/testdata to dst.
func copyFixture(t *testing.T, name, dst string) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("internal", "format", "testdata", name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func assertNoTemp(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist, "temp file left behind")
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cache")
	e, err := New(WithCacheDir(dir))
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, dir, e.CacheDir())
	assert.Equal(t, DefaultWorkers, e.workers)
	assert.Equal(t, DefaultReadChunkSize, e.chunkSize)
	assert.Equal(t, DefaultAppName, e.appName)
	assert.NotNil(t, e.logger)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  Option
	}{
		{name: "nil cache", opt: WithCache(nil)},
		{name: "empty cache dir", opt: WithCacheDir("")},
		{name: "empty app name", opt: WithAppName("")},
		{name: "zero workers", opt: WithWorkers(0)},
		{name: "negative chunk", opt: WithReadChunkSize(-1)},
		{name: "unreadable cache files", opt: WithCachePerm(0o700, 0o200)},
		{name: "untraversable cache dirs", opt: WithCachePerm(0o600, 0o600)},
		{name: "cache file type bits", opt: WithCachePerm(0o700, fs.ModeSetuid|0o600)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestWithCachePerm(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cache")
	e, err := New(WithCacheDir(dir), WithCachePerm(0o750, 0o640))
	require.NoError(t, err)
	defer e.Close()
	path := writeBook(t, "book.cbz", "01.jpg")

	_, err = e.ReadEntry(path, "01.jpg")
	require.NoError(t, err)

	dc, err := disk.New(dir)
	require.NoError(t, err)
	record, err := dc.Path(path, "01.jpg")
	require.NoError(t, err)
	info, err := os.Stat(record)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), info.Mode().Perm())

	// umask may clear group bits on directories.
	info, err = os.Stat(filepath.Dir(record))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o700), info.Mode().Perm()&0o700)
}

func TestNewWithCacheSkipsDisk(t *testing.T) {
	t.Parallel()

	e, mc := newTestEngine(t, WithWorkers(2), WithReadChunkSize(512))
	assert.Same(t, mc, e.cache)
	assert.Empty(t, e.CacheDir())
	assert.Equal(t, 2, e.workers)
	assert.Equal(t, 512, e.chunkSize)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.CacheDir = filepath.Join(t.TempDir(), "from-config")
	cfg.Workers = 3
	cfg.ReadChunkSize = 1024

	e, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, cfg.CacheDir, e.CacheDir())
	assert.Equal(t, 3, e.workers)
	assert.Equal(t, 1024, e.chunkSize)
}

func TestNewFromConfigOptionsOverride(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Workers: 3}
	e, err := NewFromConfig(cfg, WithCache(testutil.NewMockCache()), WithWorkers(6))
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 6, e.workers)
	assert.Equal(t, DefaultReadChunkSize, e.chunkSize)
}

func TestDefaultCacheDir(t *testing.T) {
	t.Parallel()

	dir, err := DefaultCacheDir("brighteyes")
	if err != nil {
		t.Skipf("no user cache dir: %v", err)
	}
	assert.Equal(t, "archives", filepath.Base(dir))
	assert.Equal(t, "brighteyes", filepath.Base(filepath.Dir(dir)))
}
