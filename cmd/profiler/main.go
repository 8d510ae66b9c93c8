package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/arcentry"
	"github.com/meigma/arcentry/config"
	"github.com/meigma/arcentry/internal/testutil"
	"github.com/meigma/arcentry/vpath"
)

const cacheNone = "none"

type settings struct {
	mode       string
	pages      int
	pageSize   int
	pattern    string
	source     string
	configPath string
	fgProfile  string
	duration   time.Duration
	iterations int
	pprofAddr  string
	cpuProfile string
	memProfile string
	traceFile  string
	cache      string
	cacheDir   string
	workers    int
	readRandom bool
	tempDir    string
	keepTemp   bool
	verbose    bool
	randomSeed int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes []byte
	sinkNames []string
	sinkSize  uint64
)

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	archive, names, err := makeArchive(dir, cfg)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, archive, names, dir)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s source=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		cfg.source,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg settings, archive string, names []string, rootDir string) (profileStats, error) {
	ctx := context.Background()
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	eng, cleanup, err := newEngine(cfg, rootDir)
	if err != nil {
		return profileStats{}, err
	}
	defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	defer eng.Close()

	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks

	switch cfg.mode {
	case "list":
		for shouldContinue() {
			list, err := eng.ListImageEntries(archive)
			if err != nil {
				return profileStats{}, err
			}
			sinkNames = list
			ops++
		}

	case "read":
		for shouldContinue() {
			name := pickName(names, ops, rng, cfg.readRandom)
			content, err := eng.ReadEntry(archive, name)
			if err != nil {
				return profileStats{}, fmt.Errorf("%s: %w", vpath.Format(archive, name), err)
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "read-hot":
		if cfg.cache == cacheNone {
			return profileStats{}, errors.New("read-hot requires cache")
		}
		if err := eng.Prefetch(ctx, archive, names...); err != nil {
			return profileStats{}, err
		}
		start = time.Now()
		for shouldContinue() {
			name := pickName(names, ops, rng, cfg.readRandom)
			content, err := eng.ReadEntry(archive, name)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = content
			byteCount += int64(len(content))
			ops++
		}

	case "read-async":
		for shouldContinue() {
			futures := make([]*arcentry.Future, 0, cfg.workers)
			for i := 0; i < cfg.workers && shouldContinue(); i++ {
				name := pickName(names, ops+i, rng, cfg.readRandom)
				futures = append(futures, eng.ReadEntryAsync(ctx, archive, name))
			}
			for _, f := range futures {
				content, err := f.Result()
				if err != nil {
					return profileStats{}, err
				}
				sinkBytes = content
				byteCount += int64(len(content))
				ops++
			}
		}

	case "size":
		for shouldContinue() {
			name := pickName(names, ops, rng, cfg.readRandom)
			size, err := eng.EntrySize(archive, name)
			if err != nil {
				return profileStats{}, err
			}
			sinkSize = size
			ops++
		}

	case "delete":
		if cfg.source != "cbz" {
			return profileStats{}, fmt.Errorf("delete requires -source=cbz, got %s", cfg.source)
		}
		for shouldContinue() {
			work := filepath.Join(rootDir, fmt.Sprintf("delete-%d.cbz", ops))
			if err := copyFile(archive, work); err != nil {
				return profileStats{}, err
			}
			info, err := os.Stat(work)
			if err != nil {
				return profileStats{}, err
			}
			if err := eng.DeleteEntry(ctx, work, names[len(names)/2]); err != nil {
				return profileStats{}, err
			}
			if err := os.Remove(work); err != nil {
				return profileStats{}, err
			}
			byteCount += info.Size()
			ops++
		}

	case "convert":
		info, err := os.Stat(archive)
		if err != nil {
			return profileStats{}, err
		}
		dest := filepath.Join(rootDir, "converted.cbz")
		for shouldContinue() {
			if err := eng.ConvertToCBZ(ctx, archive, dest); err != nil {
				return profileStats{}, err
			}
			byteCount += info.Size()
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() settings {
	var cfg settings
	flag.StringVar(&cfg.mode, "mode", "read", "mode: list, read, read-hot, read-async, size, delete, convert")
	flag.IntVar(&cfg.pages, "pages", 200, "number of pages in the generated archive")
	flag.IntVar(&cfg.pageSize, "page-size", 256<<10, "page size in bytes")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.StringVar(&cfg.source, "source", "cbz", "generated archive: cbz, cbt, tar.gz, tar.zst")
	flag.StringVar(&cfg.configPath, "config", "", "engine config file (defaults apply when empty)")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.cache, "cache", "memory", "cache: memory, disk, none")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "", "cache directory (disk cache only)")
	flag.IntVar(&cfg.workers, "workers", arcentry.DefaultWorkers, "async and prefetch workers")
	flag.BoolVar(&cfg.readRandom, "read-random", true, "randomize entry selection")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.BoolVar(&cfg.verbose, "v", false, "log engine diagnostics to stderr")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

func pickName(names []string, idx int, rng *rand.Rand, random bool) string {
	if random {
		return names[rng.Intn(len(names))]
	}
	return names[idx%len(names)]
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg settings) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "arcentry-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// makeArchive writes the generated comic and returns its path and page names.
//
//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func makeArchive(dir string, cfg settings) (string, []string, error) {
	if cfg.pages <= 0 {
		return "", nil, errors.New("pages must be positive")
	}
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional use for reproducible benchmarks
	entries := make([]testutil.Entry, 0, cfg.pages)
	names := make([]string, 0, cfg.pages)
	for i := range cfg.pages {
		name := fmt.Sprintf("issue/page%d.jpg", i+1)
		content := make([]byte, cfg.pageSize)
		switch cfg.pattern {
		case "random":
			if _, err := rng.Read(content); err != nil {
				return "", nil, err
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}
		entries = append(entries, testutil.Entry{Name: name, Data: content})
		names = append(names, name)
	}

	tb := fatalTB{}
	var path string
	switch cfg.source {
	case "cbz":
		path = filepath.Join(dir, "comic.cbz")
		testutil.WriteZip(tb, path, entries)
	case "cbt":
		path = filepath.Join(dir, "comic.cbt")
		testutil.WriteTar(tb, path, testutil.TarPlain, entries)
	case "tar.gz":
		path = filepath.Join(dir, "comic.tar.gz")
		testutil.WriteTar(tb, path, testutil.TarGzip, entries)
	case "tar.zst":
		path = filepath.Join(dir, "comic.tar.zst")
		testutil.WriteTar(tb, path, testutil.TarZstd, entries)
	default:
		return "", nil, fmt.Errorf("unknown source: %s", cfg.source)
	}
	return path, names, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newEngine(cfg settings, rootDir string) (*arcentry.Engine, func() error, error) {
	fileCfg := config.DefaultConfig()
	if cfg.configPath != "" {
		loaded, err := config.Load(cfg.configPath)
		if err != nil {
			return nil, nil, err
		}
		fileCfg = loaded
	}

	opts := []arcentry.Option{arcentry.WithWorkers(cfg.workers)}
	if cfg.verbose {
		opts = append(opts, arcentry.WithLogger(slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	cleanup := func() error { return nil }
	switch cfg.cache {
	case cacheNone:
		opts = append(opts, arcentry.WithCache(noCache{}))
	case "memory":
		opts = append(opts, arcentry.WithCache(testutil.NewMockCache()))
	case "disk":
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			dir, err := os.MkdirTemp(rootDir, "cache-*")
			if err != nil {
				return nil, nil, err
			}
			cacheDir = dir
			cleanup = func() error { return os.RemoveAll(dir) }
		}
		opts = append(opts, arcentry.WithCacheDir(cacheDir))
	default:
		return nil, nil, fmt.Errorf("unknown cache: %s", cfg.cache)
	}

	eng, err := arcentry.NewFromConfig(fileCfg, opts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

// noCache never stores anything, so every read goes to the archive.
type noCache struct{}

func (noCache) Get(string, string) ([]byte, bool) { return nil, false }
func (noCache) Put(string, string, []byte) error  { return nil }
func (noCache) Delete(string, string) error       { return nil }
func (noCache) Purge(string) error                { return nil }

// fatalTB lets the fixture writers run outside tests.
type fatalTB struct{}

func (fatalTB) Helper() {}

func (fatalTB) Fatalf(format string, args ...any) {
	log.Fatalf(format, args...)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644) //nolint:gosec // 0o644 is intentional for profiler files
}
