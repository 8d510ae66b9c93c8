package format

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arcentry/internal/archtype"
	"github.com/meigma/arcentry/internal/testutil"
)

// readAll drains r and returns every entry's bytes keyed by name, plus the
// names in visit order.
func readAll(t *testing.T, r Reader) (map[string][]byte, []string) {
	t.Helper()

	got := make(map[string][]byte)
	var order []string
	for {
		h, err := r.Next()
		if errors.Is(err, io.EOF) {
			return got, order
		}
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = CopyEntry(context.Background(), &buf, r, nil)
		require.NoError(t, err)
		got[h.Name] = buf.Bytes()
		order = append(order, h.Name)
	}
}

func TestOpenZipContainerOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.cbz")
	entries := testutil.Pages("c.jpg", "a.jpg", "b/nested.png")
	testutil.WriteZip(t, path, entries)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, order := readAll(t, r)
	assert.Equal(t, []string{"c.jpg", "a.jpg", "b/nested.png"}, order)
	for _, e := range entries {
		assert.Equal(t, e.Data, got[e.Name], "entry %s", e.Name)
	}
}

func TestOpenZipSkipsUnreadEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.zip")
	testutil.WriteZip(t, path, testutil.Pages("1.jpg", "2.jpg", "3.jpg"))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for {
		h, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, h.Name)
		assert.Equal(t, int64(len(testutil.Page(h.Name))), h.Size)
		assert.True(t, h.SizeKnown())
	}
	assert.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, names)
}

func TestOpenZipZstdEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.cbz")
	testutil.WriteZip(t, path, []testutil.Entry{
		{Name: "01.jpg", Data: testutil.Page("01.jpg"), Zstd: true},
		{Name: "02.jpg", Data: testutil.Page("02.jpg")},
	})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, order := readAll(t, r)
	assert.Equal(t, []string{"01.jpg", "02.jpg"}, order)
	assert.Equal(t, testutil.Page("01.jpg"), got["01.jpg"])
	assert.Equal(t, testutil.Page("02.jpg"), got["02.jpg"])
}

// testdata/comic.cbr is a stored RAR 4 archive and testdata/comic.cb7 an
// LZMA2 7z archive. Both hold a "pages" directory and testutil.Page payloads
// for pages/10.jpg, pages/2.jpg and pages/info.txt.
func TestOpenRarAndSevenZip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		file  string
		kind  Kind
		order []string
	}{
		{
			name:  "rar",
			file:  "testdata/comic.cbr",
			kind:  Rar,
			order: []string{"pages", "pages/10.jpg", "pages/2.jpg", "pages/info.txt"},
		},
		{
			name:  "7z",
			file:  "testdata/comic.cb7",
			kind:  SevenZip,
			order: []string{"pages/10.jpg", "pages/2.jpg", "pages/info.txt", "pages"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := os.Open(tt.file)
			require.NoError(t, err)
			kind, err := Detect(tt.file, f)
			f.Close()
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)

			r, err := Open(tt.file)
			require.NoError(t, err)
			defer r.Close()

			var order []string
			for {
				h, err := r.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				order = append(order, h.Name)
				if h.Name == "pages" {
					assert.True(t, h.IsDir)
					continue
				}
				assert.False(t, h.IsDir, h.Name)
				want := testutil.Page(h.Name)
				require.True(t, h.SizeKnown(), h.Name)
				assert.Equal(t, int64(len(want)), h.Size, h.Name)

				var buf bytes.Buffer
				_, err = CopyEntry(context.Background(), &buf, r, make([]byte, 100))
				require.NoError(t, err)
				assert.Equal(t, want, buf.Bytes(), h.Name)
			}
			assert.Equal(t, tt.order, order)
		})
	}
}

func TestOpenRarSkipsUnreadEntries(t *testing.T) {
	t.Parallel()

	r, err := Open("testdata/comic.cbr")
	require.NoError(t, err)
	defer r.Close()

	for {
		h, err := r.Next()
		if errors.Is(err, io.EOF) {
			t.Fatal("pages/info.txt not found")
		}
		require.NoError(t, err)
		if h.Name != "pages/info.txt" {
			continue
		}
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, testutil.Page("pages/info.txt"), data)
		return
	}
}

func TestOpenTarVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		file        string
		compression testutil.Compression
		want        Kind
	}{
		{name: "plain", file: "book.cbt", compression: testutil.TarPlain, want: Tar},
		{name: "gzip", file: "book.tar.gz", compression: testutil.TarGzip, want: TarGzip},
		{name: "zstd", file: "book.tar.zst", compression: testutil.TarZstd, want: TarZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.file)
			entries := append([]testutil.Entry{{Name: "pages/"}}, testutil.Pages("pages/01.jpg", "pages/02.jpg")...)
			testutil.WriteTar(t, path, tt.compression, entries)

			f, err := os.Open(path)
			require.NoError(t, err)
			kind, err := Detect(path, f)
			f.Close()
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()

			got, order := readAll(t, r)
			assert.Equal(t, []string{"pages/", "pages/01.jpg", "pages/02.jpg"}, order)
			assert.Equal(t, testutil.Page("pages/02.jpg"), got["pages/02.jpg"])
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.cbz"))
	require.Error(t, err)
	assert.ErrorIs(t, err, archtype.ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenCorruptZip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.cbz")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04 definitely not a zip"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, archtype.ErrCorrupt)
}

func TestOpenEmptyZipNamedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, archtype.ErrCorrupt)
}

func TestOpenUnsupportedFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some text"), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, archtype.ErrUnsupportedFormat)
}

func TestOpenTruncatedTar(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "book.tar")
	testutil.WriteTar(t, path, testutil.TarPlain, testutil.Pages("01.jpg", "02.jpg", "03.jpg"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:1100], 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var sawErr error
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sawErr = err
			break
		}
		if _, err := CopyEntry(context.Background(), io.Discard, r, nil); err != nil {
			sawErr = err
			break
		}
	}
	require.Error(t, sawErr)
	assert.ErrorIs(t, sawErr, archtype.ErrCorrupt)
}

func TestDetectBytes(t *testing.T) {
	t.Parallel()

	tar := make([]byte, 512)
	copy(tar[257:], "ustar")

	tests := []struct {
		name string
		head []byte
		want Kind
	}{
		{name: "zip", head: []byte("PK\x03\x04rest"), want: Zip},
		{name: "empty zip", head: []byte("PK\x05\x06rest"), want: Zip},
		{name: "rar", head: []byte("Rar!\x1a\x07\x01\x00"), want: Rar},
		{name: "7z", head: []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c, 0, 4}, want: SevenZip},
		{name: "gzip", head: []byte{0x1f, 0x8b, 8}, want: TarGzip},
		{name: "zstd", head: []byte{0x28, 0xb5, 0x2f, 0xfd}, want: TarZstd},
		{name: "bzip2", head: []byte("BZh9"), want: TarBzip2},
		{name: "tar", head: tar, want: Tar},
		{name: "short", head: []byte("P"), want: Unknown},
		{name: "text", head: []byte("hello"), want: Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectBytes(tt.head))
		})
	}
}

func TestDetectName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Zip, DetectName("/a/Book.CBZ"))
	assert.Equal(t, Rar, DetectName("book.cbr"))
	assert.Equal(t, SevenZip, DetectName("book.cb7"))
	assert.Equal(t, TarGzip, DetectName("book.TAR.GZ"))
	assert.Equal(t, Tar, DetectName("book.cbt"))
	assert.Equal(t, Unknown, DetectName("book.pdf"))
	assert.Equal(t, "tar.zst", TarZstd.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.after {
		return 0, errors.New("disk full")
	}
	w.n += len(p)
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("bad block") }

func TestCopyEntryClassifiesFailures(t *testing.T) {
	t.Parallel()

	n, err := CopyEntry(context.Background(), &failingWriter{after: 10}, bytes.NewReader(make([]byte, 64)), make([]byte, 8))
	assert.Equal(t, int64(8), n)
	assert.ErrorIs(t, err, archtype.ErrIO)

	_, err = CopyEntry(context.Background(), io.Discard, failingReader{}, nil)
	assert.ErrorIs(t, err, archtype.ErrCorrupt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyEntry(ctx, io.Discard, bytes.NewReader([]byte("x")), nil)
	assert.ErrorIs(t, err, archtype.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCopyEntryChunks(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("abcdefgh"), 3000)
	var dst bytes.Buffer
	n, err := CopyEntry(context.Background(), &dst, bytes.NewReader(src), make([]byte, DefaultChunkSize))
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, dst.Bytes())
}

func TestZipCopyRawRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.cbz")
	entries := append(testutil.Pages("01.jpg", "02.jpg"), testutil.Entry{Name: "stored.png", Data: []byte("raw"), Store: true})
	testutil.WriteZip(t, src, entries)

	zr, err := OpenZip(src)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, 3, zr.Len())

	dst := filepath.Join(dir, "dst.cbz")
	w, err := CreateZip(dst, 0o644)
	require.NoError(t, err)
	for {
		_, err := zr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, zr.CopyRaw(context.Background(), w, make([]byte, 1024)))
	}
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"01.jpg", "02.jpg", "stored.png"}, testutil.ReadZipNames(t, dst))
	for _, e := range entries {
		assert.Equal(t, e.Data, testutil.ReadZipEntry(t, dst, e.Name))
	}
}

func TestZipWriterCreate(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "out.cbz")
	w, err := CreateZip(dst, 0o600)
	require.NoError(t, err)

	_, err = w.Create(&Header{Name: "dir", IsDir: true, Mode: os.ModeDir | 0o755})
	require.NoError(t, err)
	fw, err := w.Create(&Header{Name: "dir/01.jpg", Mode: 0o644})
	require.NoError(t, err)
	_, err = fw.Write([]byte("pixels"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"dir/", "dir/01.jpg"}, testutil.ReadZipNames(t, dst))
	assert.Equal(t, []byte("pixels"), testutil.ReadZipEntry(t, dst, "dir/01.jpg"))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCreateZipUnwritableDir(t *testing.T) {
	t.Parallel()

	_, err := CreateZip(filepath.Join(t.TempDir(), "missing", "out.cbz"), 0o644)
	assert.ErrorIs(t, err, archtype.ErrIO)
}
