package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// TB is the subset of testing.TB the fixture writers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Entry describes one fixture entry.
type Entry struct {
	Name string
	Data []byte
	// Store writes the entry without compression.
	Store bool
	// Zstd writes a ZIP entry with method 93.
	Zstd bool
}

// Page returns deterministic payload bytes for an entry name.
func Page(name string) []byte {
	return bytes.Repeat([]byte("page:"+name+";"), 64)
}

// Pages builds fixture entries whose data is Page(name).
func Pages(names ...string) []Entry {
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Data: Page(name)})
	}
	return entries
}

// fixtureTime keeps fixture bytes reproducible.
var fixtureTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// WriteZip writes a ZIP archive at path containing entries in order.
// Names ending in "/" become directory entries.
func WriteZip(tb TB, path string, entries []Entry) {
	tb.Helper()
	WriteZipComment(tb, path, "", entries)
}

// WriteZipComment is WriteZip with an archive comment.
func WriteZipComment(tb TB, path, comment string, entries []Entry) {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	if err := zw.SetComment(comment); err != nil {
		tb.Fatalf("zip comment: %v", err)
	}
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: fixtureTime}
		switch {
		case e.Store || strings.HasSuffix(e.Name, "/"):
			fh.Method = zip.Store
		case e.Zstd:
			fh.Method = zstd.ZipMethodWinZip
		}
		w, err := zw.CreateHeader(fh)
		if err != nil {
			tb.Fatalf("zip header %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			tb.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	writeFile(tb, path, buf.Bytes())
}

// Compression selects the stream wrapper for WriteTar.
type Compression int

// Tar stream wrappers.
const (
	TarPlain Compression = iota
	TarGzip
	TarZstd
)

// WriteTar writes a tar archive at path, optionally compressed.
func WriteTar(tb TB, path string, compression Compression, entries []Entry) {
	tb.Helper()

	var buf bytes.Buffer
	var sink io.WriteCloser = nopCloser{&buf}
	switch compression {
	case TarGzip:
		sink = gzip.NewWriter(&buf)
	case TarZstd:
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			tb.Fatalf("zstd writer: %v", err)
		}
		sink = enc
	}

	tw := tar.NewWriter(sink)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    0o644,
			Size:    int64(len(e.Data)),
			ModTime: fixtureTime,
			Format:  tar.FormatPAX,
		}
		if strings.HasSuffix(e.Name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tb.Fatalf("tar header %s: %v", e.Name, err)
		}
		if _, err := tw.Write(e.Data); err != nil {
			tb.Fatalf("tar write %s: %v", e.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		tb.Fatalf("tar close: %v", err)
	}
	if err := sink.Close(); err != nil {
		tb.Fatalf("compression close: %v", err)
	}
	writeFile(tb, path, buf.Bytes())
}

// ReadZipNames returns the entry names of the ZIP at path, in order.
func ReadZipNames(tb TB, path string) []string {
	tb.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		tb.Fatalf("open zip %s: %v", path, err)
	}
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadZipComment returns the archive comment of the ZIP at path.
func ReadZipComment(tb TB, path string) string {
	tb.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		tb.Fatalf("open zip %s: %v", path, err)
	}
	defer zr.Close()
	return zr.Comment
}

// ReadZipMethods returns the compression method of each entry of the ZIP at
// path, keyed by name.
func ReadZipMethods(tb TB, path string) map[string]uint16 {
	tb.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		tb.Fatalf("open zip %s: %v", path, err)
	}
	defer zr.Close()
	methods := make(map[string]uint16, len(zr.File))
	for _, f := range zr.File {
		methods[f.Name] = f.Method
	}
	return methods
}

// ReadZipEntry returns the decompressed bytes of one ZIP entry.
func ReadZipEntry(tb TB, path, name string) []byte {
	tb.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		tb.Fatalf("open zip %s: %v", path, err)
	}
	defer zr.Close()
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	rc, err := zr.Open(name)
	if err != nil {
		tb.Fatalf("open entry %s: %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		tb.Fatalf("read entry %s: %v", name, err)
	}
	return data
}

func writeFile(tb TB, path string, data []byte) {
	tb.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
