package arcentry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arcentry/internal/testutil"
)

func TestListImageEntriesNaturalOrder(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "book.cbz")
	entries := append(
		testutil.Pages("10.jpg", "2.jpg", "a.png", "notes.txt", "b.jpg", "ComicInfo.xml"),
		testutil.Entry{Name: "extras/"},
	)
	testutil.WriteZip(t, path, entries)

	got, err := e.ListImageEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.jpg", "2.jpg", "10.jpg"}, got)
}

func TestListImageEntriesDeterministic(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	path := writeBook(t, "book.cbz", "p10.png", "p9.PNG", "cover.JPEG", "p1.webp", ".hidden.gif", "sub/p2.bmp")

	first, err := e.ListImageEntries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden.gif", "cover.JPEG", "p1.webp", "p9.PNG", "p10.png", "sub/p2.bmp"}, first)

	for range 5 {
		again, err := e.ListImageEntries(path)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestListImageEntriesTarFormats(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	entries := testutil.Pages("page10.jpg", "page2.jpg", "page1.jpg", "readme.md")
	want := []string{"page1.jpg", "page2.jpg", "page10.jpg"}

	for name, c := range map[string]testutil.Compression{
		"book.cbt":     testutil.TarPlain,
		"book.tar.gz":  testutil.TarGzip,
		"book.tar.zst": testutil.TarZstd,
	} {
		path := filepath.Join(t.TempDir(), name)
		testutil.WriteTar(t, path, c, entries)

		got, err := e.ListImageEntries(path)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestListImageEntriesNoImages(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	path := writeBook(t, "docs.zip", "a.txt", "b.pdf")

	got, err := e.ListImageEntries(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListImageEntriesDoesNotTouchCache(t *testing.T) {
	t.Parallel()

	e, mc := newTestEngine(t)
	path := writeBook(t, "book.cbz", "1.jpg", "2.jpg")

	_, err := e.ListImageEntries(path)
	require.NoError(t, err)
	assert.Zero(t, mc.Gets())
	assert.Zero(t, mc.Puts())
}

func TestListImageEntriesErrors(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.cbz")
	_, err := e.ListImageEntries(missing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("not an archive"), 0o644))
	_, err = e.ListImageEntries(text)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	broken := filepath.Join(dir, "broken.cbz")
	require.NoError(t, os.WriteFile(broken, []byte("PK\x03\x04garbage"), 0o644))
	_, err = e.ListImageEntries(broken)
	assert.ErrorIs(t, err, ErrCorrupt)

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "list", ae.Op)
	assert.Equal(t, broken, ae.Path)
	assert.Equal(t, ErrCorrupt, ae.Kind)
}

func TestListImageEntriesTruncatedIsAllOrNothing(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "book.cbt")
	testutil.WriteTar(t, path, testutil.TarPlain, testutil.Pages("01.jpg", "02.jpg", "03.jpg"))

	// Keep the first entry and the second header, cut into the second payload.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:1536+512+100], 0o644))

	got, err := e.ListImageEntries(path)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Nil(t, got)
}
