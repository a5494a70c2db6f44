// Package extractor pulls entries out of an ARH/ARD archive pair.
//
// An Extractor owns a single read handle on the data file and moves its
// position on every extraction. It is not safe for concurrent use.
package extractor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ossyrian/ardtool/internal/ard"
	"github.com/ossyrian/ardtool/internal/parser"
	"github.com/ossyrian/ardtool/internal/registry"
	"github.com/ossyrian/ardtool/internal/xbc1"
)

// MultiChunkSuffix marks map data files that embed many independent xbc1
// frames behind their own sub-header. Auto-unwrap must leave them intact.
const MultiChunkSuffix = ".wismda"

// DefaultWordlistDir is where wordlists are looked up by default.
const DefaultWordlistDir = "Filelists"

// Extractor reads entries from an opened archive.
type Extractor struct {
	fs          afero.Fs
	arhPath     string
	index       *parser.Index
	registry    *registry.Registry
	data        afero.File
	logger      *slog.Logger
	autoUnwrap  bool
	dryRun      bool
	wordlistDir string
	buf         []byte
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAutoUnwrap controls whether entries that start with an xbc1 container
// but are not flagged compressed by the header are decoded.
// Enabled by default.
func WithAutoUnwrap(enabled bool) Option {
	return func(e *Extractor) {
		e.autoUnwrap = enabled
	}
}

// WithWordlistDir sets the directory wordlists are loaded from.
func WithWordlistDir(dir string) Option {
	return func(e *Extractor) {
		e.wordlistDir = dir
	}
}

// WithLogger sets the logger. By default slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithDryRun decodes every requested entry without writing any file.
func WithDryRun(dryRun bool) Option {
	return func(e *Extractor) {
		e.dryRun = dryRun
	}
}

// DataPath returns the .ard companion path for an .arh header path.
func DataPath(arhPath string) string {
	return strings.TrimSuffix(arhPath, filepath.Ext(arhPath)) + ard.DataExt
}

// Open parses the header at arhPath, opens the companion data file and
// builds the path registry from the wordlist directory.
func Open(fsys afero.Fs, arhPath string, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		fs:          fsys,
		arhPath:     arhPath,
		autoUnwrap:  true,
		wordlistDir: DefaultWordlistDir,
		buf:         make([]byte, ard.CopyBufferSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("archive", arhPath)

	idx, err := e.readIndex()
	if err != nil {
		return nil, err
	}
	e.index = idx

	dataPath := DataPath(arhPath)
	data, err := fsys.Open(dataPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist next to %s", ard.ErrMissingCompanionFile, dataPath, arhPath)
		}
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	e.data = data

	e.logger.Info("opened archive", "file_count", idx.Len())

	sources, err := registry.LoadWordlists(fsys, e.wordlistDir, e.logger)
	if err != nil {
		data.Close()
		return nil, err
	}

	e.registry = registry.Build(idx, sources, e.logger)

	stats := e.registry.Stats()
	e.logger.Info("resolved path hashes",
		"known", e.registry.Len(),
		"total", idx.Len(),
		"percent", fmt.Sprintf("%.2f", e.registry.Coverage(idx.Len())),
		"collisions", stats.Collisions,
	)

	return e, nil
}

func (e *Extractor) readIndex() (*parser.Index, error) {
	f, err := e.fs.Open(e.arhPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open header file: %w", err)
	}
	defer f.Close()

	idx, err := parser.Parse(bufio.NewReader(f), e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", e.arhPath, err)
	}
	return idx, nil
}

// Close releases the data file handle.
func (e *Extractor) Close() error {
	return e.data.Close()
}

// Index returns the parsed header.
func (e *Extractor) Index() *parser.Index {
	return e.index
}

// Registry returns the recovered hash to path table.
func (e *Extractor) Registry() *registry.Registry {
	return e.registry
}

// NameOf returns the known game path of an entry, or its name under the
// unmapped tree.
func (e *Extractor) NameOf(entry ard.FileEntry) (name string, mapped bool) {
	if p, ok := e.registry.Lookup(entry.Hash); ok {
		return p, true
	}
	return ard.UnmappedName(entry.Hash), false
}

// ExtractOne writes the bytes of entry to dst. name is the target output
// name; it only matters for the multi-chunk exception to auto-unwrap.
//
// Entries flagged compressed are always decoded and their container size
// is checked against the header. Unflagged entries that start with an xbc1
// container are decoded when auto-unwrap applies. Everything else is
// copied verbatim.
func (e *Extractor) ExtractOne(entry ard.FileEntry, dst io.Writer, name string) error {
	if _, err := e.data.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to entry %s at %d: %w", entry.HashString(), entry.Offset, err)
	}

	isContainer := false
	if entry.DiskSize >= xbc1.HeaderSize {
		magic, err := ard.PeekMagic(e.data)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entry.HashString(), err)
		}
		isContainer = xbc1.IsMagic(magic[:])
	}

	switch {
	case entry.IsCompressed():
		if !isContainer {
			return fmt.Errorf("%w: entry %s is flagged compressed but has no container header",
				ard.ErrFormat, entry.HashString())
		}
		return e.decode(entry, dst, xbc1.WithExpectedSize(entry.ExpandedSize))

	case isContainer && e.unwraps(name):
		return e.decode(entry, dst)

	default:
		if _, err := ard.CopyExact(dst, e.data, int64(entry.DiskSize), e.buf); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: data file ends inside entry %s", ard.ErrFormat, entry.HashString())
			}
			return fmt.Errorf("failed to copy entry %s: %w", entry.HashString(), err)
		}
		return nil
	}
}

// unwraps reports whether an unflagged container named name is decoded.
func (e *Extractor) unwraps(name string) bool {
	if !e.autoUnwrap {
		return false
	}
	return !strings.HasSuffix(strings.ToLower(name), MultiChunkSuffix)
}

func (e *Extractor) decode(entry ard.FileEntry, dst io.Writer, opts ...xbc1.DecodeOption) error {
	opts = append(opts, xbc1.WithBuffer(e.buf))

	h, err := xbc1.Decode(e.data, int64(entry.Offset), dst, opts...)
	if err != nil {
		return fmt.Errorf("entry %s: %w", entry.HashString(), err)
	}

	e.logger.Debug("decoded container",
		"hash", entry.HashString(),
		"compression", h.Compression,
		"compressed_size", h.CompressedSize,
		"decompressed_size", h.DecompressedSize,
		"name", h.Name,
	)
	return nil
}

// ExtractByHash extracts the entry with the given hash to outFile.
func (e *Extractor) ExtractByHash(hash uint64, outFile string) error {
	entry, ok := e.index.Lookup(hash)
	if !ok {
		return fmt.Errorf("%w: hash %s", ard.ErrNotFound, ard.FormatHash(hash))
	}

	name, _ := e.NameOf(entry)
	return e.extractTo(entry, outFile, name)
}

// ExtractByPath extracts the entry for a game path to outFile.
func (e *Extractor) ExtractByPath(gamePath, outFile string) error {
	entry, ok := e.index.LookupPath(gamePath)
	if !ok {
		return fmt.Errorf("%w: path %s", ard.ErrNotFound, gamePath)
	}

	return e.extractTo(entry, outFile, ard.NormalizePath(gamePath))
}

// extractTo writes one entry to outFile, or decodes it into io.Discard on
// a dry run.
func (e *Extractor) extractTo(entry ard.FileEntry, outFile, name string) error {
	if e.dryRun {
		return e.ExtractOne(entry, io.Discard, name)
	}

	return writeAtomic(e.fs, outFile, func(w io.Writer) error {
		return e.ExtractOne(entry, w, name)
	})
}
