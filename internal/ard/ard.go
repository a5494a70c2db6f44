// Package ard models the ARH/ARD two-file archive format: the header
// preamble, per-file entries and the path hashing used to key them.
package ard

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Preamble is the fixed-size start of an .arh header file.
type Preamble struct {
	Magic         uint32 // sanity value only, not matched against a constant
	FileCount     uint32
	FileAlignment uint32 // power of two
	Reserved      uint32
}

// FileEntry describes one archived file.
type FileEntry struct {
	Hash         uint64 // xxHash64 of the normalized game path
	DiskSize     uint32 // bytes occupied in the data file before padding
	ExpandedSize uint32 // declared decompressed size, 0 if not flagged compressed
	Offset       uint64 // computed from the running aligned sum, not stored
}

// IsCompressed reports whether the header flags the entry as compressed.
func (e FileEntry) IsCompressed() bool {
	return e.ExpandedSize != 0
}

// HashString formats the hash as 16 uppercase hex digits.
func (e FileEntry) HashString() string {
	return FormatHash(e.Hash)
}

// FormatHash formats a path hash as 16 uppercase hex digits.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016X", h)
}

// UnmappedName returns the slash-separated relative output path used for an
// entry whose game path is unknown.
func UnmappedName(h uint64) string {
	return path.Join(UnmappedDir, FormatHash(h)+UnmappedExt)
}

// IsPowerOfTwo reports whether a is a nonzero power of two.
func IsPowerOfTwo(a uint32) bool {
	return a != 0 && a&(a-1) == 0
}

// AlignUp rounds x up to the next multiple of a, which must be a power of two.
func AlignUp(x uint64, a uint32) uint64 {
	mask := uint64(a) - 1
	return (x + mask) &^ mask
}

// ParseHash parses a 16 digit hexadecimal hash, optionally prefixed with 0x.
func ParseHash(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 16 {
		return 0, fmt.Errorf("hash must be 16 hex digits (e.g. DA7EB7B09B34DD80), got %q", s)
	}

	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return h, nil
}
