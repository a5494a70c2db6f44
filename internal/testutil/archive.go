// Package testutil builds synthetic ARH/ARD archives and xbc1 containers
// for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/ossyrian/ardtool/internal/ard"
)

// HeaderMagic is the magic written into synthetic header files.
const HeaderMagic = 0x32485241 // "ARH2"

// Entry is one synthetic archive member.
type Entry struct {
	Hash         uint64
	Data         []byte
	ExpandedSize uint32
}

// BuildHeader encodes a header file from records. Offsets are ignored.
func BuildHeader(alignment uint32, records []ard.FileEntry) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint32(HeaderMagic))
	binary.Write(buf, binary.LittleEndian, uint32(len(records)))
	binary.Write(buf, binary.LittleEndian, alignment)
	binary.Write(buf, binary.LittleEndian, uint32(0))

	for _, rec := range records {
		binary.Write(buf, binary.LittleEndian, rec.Hash)
		binary.Write(buf, binary.LittleEndian, rec.DiskSize)
		binary.Write(buf, binary.LittleEndian, rec.ExpandedSize)
	}
	return buf.Bytes()
}

// BuildArchive lays entries out in a data file padded to alignment and
// returns the matching header and data bytes.
func BuildArchive(alignment uint32, entries []Entry) (header, data []byte) {
	records := make([]ard.FileEntry, 0, len(entries))
	body := new(bytes.Buffer)

	for _, e := range entries {
		records = append(records, ard.FileEntry{
			Hash:         e.Hash,
			DiskSize:     uint32(len(e.Data)),
			ExpandedSize: e.ExpandedSize,
		})

		body.Write(e.Data)
		padded := ard.AlignUp(uint64(len(e.Data)), alignment)
		body.Write(bytes.Repeat([]byte{0xCD}, int(padded)-len(e.Data)))
	}

	return BuildHeader(alignment, records), body.Bytes()
}

// Container wraps an already compressed payload in an xbc1 header.
func Container(compression uint32, decompressedSize uint32, name string, payload []byte) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("xbc1")
	binary.Write(buf, binary.LittleEndian, compression)
	binary.Write(buf, binary.LittleEndian, decompressedSize)
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	binary.Write(buf, binary.LittleEndian, uint32(0xDEADBEEF))

	nameField := make([]byte, 0x30-0x14)
	copy(nameField, name)
	buf.Write(nameField)

	buf.Write(payload)
	return buf.Bytes()
}

// Zlib compresses data with zlib framing.
func Zlib(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("failed to write zlib data: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("failed to close zlib writer: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data into a single zstd frame.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		tb.Fatalf("failed to create encoder: %v", err)
	}
	if _, err := enc.Write(data); err != nil {
		tb.Fatalf("failed to write: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("failed to close encoder: %v", err)
	}
	return buf.Bytes()
}
