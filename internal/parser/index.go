package parser

import (
	"log/slog"

	"github.com/ossyrian/ardtool/internal/ard"
)

// Index is the immutable table of entries parsed from a header file.
// Entries keep their declaration order; lookups go through the hash.
type Index struct {
	preamble ard.Preamble
	entries  []ard.FileEntry
	byHash   map[uint64]int
}

// newIndex builds the hash table over entries. When the header declares the
// same hash twice, the first declaration owns the lookup; both remain in
// declaration order.
func newIndex(preamble ard.Preamble, entries []ard.FileEntry, logger *slog.Logger) *Index {
	idx := &Index{
		preamble: preamble,
		entries:  entries,
		byHash:   make(map[uint64]int, len(entries)),
	}

	for i, e := range entries {
		if _, dup := idx.byHash[e.Hash]; dup {
			logger.Warn("duplicate hash in header, keeping first declaration",
				"hash", e.HashString(),
				"index", i,
			)
			continue
		}
		idx.byHash[e.Hash] = i
	}

	return idx
}

// NewIndex builds an Index from already offset-assigned entries.
func NewIndex(preamble ard.Preamble, entries []ard.FileEntry) *Index {
	return newIndex(preamble, entries, slog.New(slog.DiscardHandler))
}

// Preamble returns the header preamble.
func (idx *Index) Preamble() ard.Preamble { return idx.preamble }

// Alignment returns the file alignment used to derive offsets.
func (idx *Index) Alignment() uint32 { return idx.preamble.FileAlignment }

// Len returns the number of declared entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Entries returns the entries in declaration order. The slice must not be modified.
func (idx *Index) Entries() []ard.FileEntry { return idx.entries }

// Has reports whether hash is present.
func (idx *Index) Has(hash uint64) bool {
	_, ok := idx.byHash[hash]
	return ok
}

// Lookup returns the entry for hash.
func (idx *Index) Lookup(hash uint64) (ard.FileEntry, bool) {
	i, ok := idx.byHash[hash]
	if !ok {
		return ard.FileEntry{}, false
	}
	return idx.entries[i], true
}

// LookupPath hashes p and returns its entry.
func (idx *Index) LookupPath(p string) (ard.FileEntry, bool) {
	return idx.Lookup(ard.HashPath(p))
}
