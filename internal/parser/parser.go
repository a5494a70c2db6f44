package parser

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/ossyrian/ardtool/internal/ard"
)

// ArhReader reads information from .arh header files.
type ArhReader struct {
	file     io.Reader
	logger   *slog.Logger
	preamble *ard.Preamble
}

// NewArhReader returns a reader over the header bytes in r.
// A nil logger discards all output.
func NewArhReader(r io.Reader, logger *slog.Logger) *ArhReader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ArhReader{file: r, logger: logger}
}

// ReadPreamble reads the fixed 16-byte preamble of a header file.
// The magic is only logged; the alignment must be a power of two.
func (r *ArhReader) ReadPreamble() (*ard.Preamble, error) {
	p := &ard.Preamble{}

	if err := binary.Read(r.file, binary.LittleEndian, &p.Magic); err != nil {
		return nil, fmt.Errorf("%w: failed to read magic: %w", ard.ErrFormat, err)
	}

	if err := binary.Read(r.file, binary.LittleEndian, &p.FileCount); err != nil {
		return nil, fmt.Errorf("%w: failed to read file count: %w", ard.ErrFormat, err)
	}

	if err := binary.Read(r.file, binary.LittleEndian, &p.FileAlignment); err != nil {
		return nil, fmt.Errorf("%w: failed to read file alignment: %w", ard.ErrFormat, err)
	}

	if err := binary.Read(r.file, binary.LittleEndian, &p.Reserved); err != nil {
		return nil, fmt.Errorf("%w: failed to read reserved field: %w", ard.ErrFormat, err)
	}

	if !ard.IsPowerOfTwo(p.FileAlignment) {
		return nil, fmt.Errorf("%w: file alignment %d is not a power of two", ard.ErrFormat, p.FileAlignment)
	}

	r.logger.Info("header preamble is valid",
		"magic", fmt.Sprintf("0x%08X", p.Magic),
		"file_count", p.FileCount,
		"file_alignment", p.FileAlignment,
	)

	r.preamble = p
	return p, nil
}

// maxPreallocEntries bounds the up-front allocation for entry records.
const maxPreallocEntries = 1 << 16

// ReadEntries reads every entry record declared by the preamble and assigns
// data file offsets. Offsets are a running sum of aligned disk sizes, so
// records must be consumed in declaration order.
func (r *ArhReader) ReadEntries() ([]ard.FileEntry, error) {
	if r.preamble == nil {
		return nil, fmt.Errorf("preamble must be read before entries")
	}

	// The count is untrusted until its records are read.
	entries := make([]ard.FileEntry, 0, min(int(r.preamble.FileCount), maxPreallocEntries))

	var offset uint64
	for i := 0; i < int(r.preamble.FileCount); i++ {
		entry, err := ard.ReadEntryRecord(r.file)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d of %d: %w", ard.ErrFormat, i, r.preamble.FileCount, err)
		}

		entry.Offset = offset
		offset += ard.AlignUp(uint64(entry.DiskSize), r.preamble.FileAlignment)

		entries = append(entries, entry)
	}

	r.logger.Debug("read entry records",
		"entry_count", len(entries),
		"data_size", offset,
	)

	return entries, nil
}

// Parse reads a whole header file into an Index.
func Parse(file io.Reader, logger *slog.Logger) (*Index, error) {
	reader := NewArhReader(file, logger)

	preamble, err := reader.ReadPreamble()
	if err != nil {
		return nil, err
	}

	entries, err := reader.ReadEntries()
	if err != nil {
		return nil, err
	}

	return newIndex(*preamble, entries, reader.logger), nil
}
