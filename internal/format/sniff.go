package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Kind identifies a container format.
type Kind int

// Supported container formats.
const (
	Unknown Kind = iota
	Zip
	Rar
	SevenZip
	Tar
	TarGzip
	TarZstd
	TarBzip2
)

var kindNames = [...]string{
	Unknown:  "unknown",
	Zip:      "zip",
	Rar:      "rar",
	SevenZip: "7z",
	Tar:      "tar",
	TarGzip:  "tar.gz",
	TarZstd:  "tar.zst",
	TarBzip2: "tar.bz2",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[Unknown]
	}
	return kindNames[k]
}

// sniffLen covers the ustar magic at offset 257.
const sniffLen = 512

type signature struct {
	kind   Kind
	offset int
	magic  []byte
}

var signatures = []signature{
	{kind: Zip, offset: 0, magic: []byte("PK\x03\x04")},
	{kind: Zip, offset: 0, magic: []byte("PK\x05\x06")},
	{kind: Rar, offset: 0, magic: []byte("Rar!\x1a\x07")},
	{kind: SevenZip, offset: 0, magic: []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}},
	{kind: TarGzip, offset: 0, magic: []byte{0x1f, 0x8b}},
	{kind: TarZstd, offset: 0, magic: []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{kind: TarBzip2, offset: 0, magic: []byte("BZh")},
	{kind: Tar, offset: 257, magic: []byte("ustar")},
}

var doubleExtensions = map[string]Kind{
	".tar.gz":  TarGzip,
	".tar.zst": TarZstd,
	".tar.bz2": TarBzip2,
}

var extensions = map[string]Kind{
	".zip":  Zip,
	".cbz":  Zip,
	".rar":  Rar,
	".cbr":  Rar,
	".7z":   SevenZip,
	".cb7":  SevenZip,
	".tar":  Tar,
	".cbt":  Tar,
	".tgz":  TarGzip,
	".tzst": TarZstd,
	".tbz2": TarBzip2,
}

// Detect identifies the format of the archive at path from the first bytes
// of r, then from the filename. r is rewound to the start when it is an
// io.Seeker.
func Detect(path string, r io.Reader) (Kind, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Unknown, fmt.Errorf("read signature: %w", corrupt(err))
	}
	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return Unknown, fmt.Errorf("rewind: %w", corrupt(err))
		}
	}
	if kind := DetectBytes(head[:n]); kind != Unknown {
		return kind, nil
	}
	return DetectName(path), nil
}

// DetectBytes matches the leading bytes of a file against known signatures.
func DetectBytes(head []byte) Kind {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(head) >= end && bytes.Equal(head[sig.offset:end], sig.magic) {
			return sig.kind
		}
	}
	return Unknown
}

// DetectName guesses the format from the filename extension.
func DetectName(path string) Kind {
	lower := strings.ToLower(path)
	for ext, kind := range doubleExtensions {
		if strings.HasSuffix(lower, ext) {
			return kind
		}
	}
	return extensions[filepath.Ext(lower)]
}
