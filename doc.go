// Package arcentry reads and edits the image entries of comic and photo
// archives without unpacking them to disk.
//
// An [Engine] lists the images in an archive in natural page order, extracts
// single entries through a persistent per-archive cache, removes an entry from
// a ZIP archive by streaming it into a sibling temp file, and converts any
// readable archive into a CBZ.
//
// Supported containers for reading are ZIP/CBZ, RAR/CBR, 7z/CB7 and tar/CBT
// (plain, gzip, zstd or bzip2 compressed). Only ZIP/CBZ archives can be
// modified.
//
// # Quick Start
//
//	eng, err := arcentry.New(arcentry.WithLogger(slog.Default()))
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	pages, err := eng.ListImageEntries("/comics/issue-01.cbz")
//	if err != nil {
//	    return err
//	}
//	cover, err := eng.ReadEntry("/comics/issue-01.cbz", pages[0])
//
// # Caching
//
// Extracted entries are written under the user cache directory, one
// directory per archive keyed by the SHA-256 of its absolute path. Use
// [WithCacheDir] to move the cache or [WithCache] to supply another
// implementation. Cache records are never expired; [Engine.DeleteEntry] and
// [Engine.ConvertToCBZ] invalidate the records they make stale. Entries whose
// names are not in clean slash form, such as "./01.jpg", are read from the
// archive every time rather than cached.
//
// # Errors
//
// Every error returned by the engine is an [*Error]. Match the failure kind
// with errors.Is against [ErrNotFound], [ErrCorrupt], [ErrEntryNotFound] and
// the other sentinels in this package.
package arcentry
