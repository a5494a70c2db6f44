package extractor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ossyrian/ardtool/internal/ard"
)

// ExtractAll extracts every entry in header order under outDir. Entries
// with a known path land at outDir/<path>; the rest go to
// outDir/.unmapped/<HASH>.bin. A later entry that would land on an
// output already used gets its header index appended to its name.
//
// A corrupt entry (bad container, size mismatch, unknown compression) is
// logged and skipped; the joined per-entry errors are returned once every
// other entry is written. Filesystem errors abort immediately.
func (e *Extractor) ExtractAll(outDir string) error {
	entries := e.index.Entries()
	total := len(entries)

	var (
		failed   []error
		unmapped int
		used     = make(map[string]struct{}, total)
	)

	for i, entry := range entries {
		name, mapped := e.NameOf(entry)
		if !mapped {
			unmapped++
		}

		outFile, err := OutputPath(outDir, name)
		if err != nil {
			e.logger.Warn("unsafe path, extracting as unmapped",
				"hash", entry.HashString(),
				"path", name,
				"error", err,
			)
			name = ard.UnmappedName(entry.Hash)
			if outFile, err = OutputPath(outDir, name); err != nil {
				return err
			}
		}

		if _, taken := used[outFile]; taken {
			renamed := indexedName(name, i)
			e.logger.Warn("output already used by an earlier entry, renaming",
				"hash", entry.HashString(),
				"file", name,
				"renamed", renamed,
			)
			name = renamed
			if outFile, err = OutputPath(outDir, name); err != nil {
				return err
			}
		}
		used[outFile] = struct{}{}

		e.logger.Info("extracting",
			"n", i+1,
			"total", total,
			"file", name,
			"mapped", mapped,
		)

		if err := e.extractTo(entry, outFile, name); err != nil {
			if !isEntryFault(err) {
				return err
			}

			e.logger.Error("skipping entry",
				"hash", entry.HashString(),
				"file", name,
				"error", err,
			)
			failed = append(failed, fmt.Errorf("%s: %w", name, err))
		}
	}

	e.logger.Info("extraction finished",
		"total", total,
		"unmapped", unmapped,
		"failed", len(failed),
		"dry_run", e.dryRun,
	)

	return errors.Join(failed...)
}

// indexedName inserts _<index> before the extension of name.
func indexedName(name string, index int) string {
	ext := path.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), index, ext)
}

// isEntryFault reports whether err is confined to one entry's data.
func isEntryFault(err error) bool {
	return errors.Is(err, ard.ErrIntegrity) ||
		errors.Is(err, ard.ErrUnsupportedCompression) ||
		errors.Is(err, ard.ErrFormat)
}

// BuildHashList writes one "HASH|path" line per entry in header order.
// The path is empty for unmapped entries.
func (e *Extractor) BuildHashList(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, entry := range e.index.Entries() {
		p, _ := e.registry.Lookup(entry.Hash)
		if _, err := fmt.Fprintf(bw, "%s|%s\n", entry.HashString(), p); err != nil {
			return fmt.Errorf("failed to write hash list: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write hash list: %w", err)
	}
	return nil
}

// WriteHashList writes the hash list to outFile.
func (e *Extractor) WriteHashList(outFile string) error {
	if err := writeAtomic(e.fs, outFile, e.BuildHashList); err != nil {
		return err
	}

	e.logger.Info("wrote hash list", "path", outFile, "entries", e.index.Len())
	return nil
}
