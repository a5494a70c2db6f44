// Package xbc1 decodes the "xbc1" compression container that wraps
// individual archive entries.
//
// Layout (little-endian):
//
//	0x00 magic "xbc1"
//	0x04 compression type
//	0x08 decompressed size
//	0x0C compressed size
//	0x10 crc32
//	0x14 name, NUL padded to 0x30
//	0x30 payload
package xbc1

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ossyrian/ardtool/internal/ard"
)

// Magic is the container tag as read from the first 4 bytes.
var Magic = [4]byte{'x', 'b', 'c', '1'}

// HeaderSize is the fixed size of the container header.
const HeaderSize = 0x30

// nameSize is the size of the NUL padded name field.
const nameSize = HeaderSize - 0x14

// Compression identifies the payload codec.
type Compression uint32

const (
	CompressionZlib Compression = 1
	CompressionZstd Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionZlib:
		return "zlib"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(c))
	}
}

// Header is the decoded container header.
type Header struct {
	Compression      Compression
	DecompressedSize uint32
	CompressedSize   uint32
	CRC              uint32 // stored, not verified
	Name             string
}

// IsMagic reports whether b starts with the container tag.
func IsMagic(b []byte) bool {
	return len(b) >= len(Magic) && bytes.Equal(b[:len(Magic)], Magic[:])
}

// ReadHeader reads the fixed 0x30-byte container header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("%w: failed to read container header: %w", ard.ErrFormat, err)
	}

	if !IsMagic(raw[:]) {
		return nil, fmt.Errorf("%w: invalid container magic: expected %q, got %q",
			ard.ErrFormat, Magic, raw[:4])
	}

	h := &Header{
		Compression:      Compression(binary.LittleEndian.Uint32(raw[0x04:])),
		DecompressedSize: binary.LittleEndian.Uint32(raw[0x08:]),
		CompressedSize:   binary.LittleEndian.Uint32(raw[0x0C:]),
		CRC:              binary.LittleEndian.Uint32(raw[0x10:]),
	}

	name := raw[0x14 : 0x14+nameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	h.Name = string(name)

	return h, nil
}
