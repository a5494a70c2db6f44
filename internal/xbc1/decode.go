package xbc1

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/ossyrian/ardtool/internal/ard"
)

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	expectedSize uint32
	checkSize    bool
	buf          []byte
}

// WithExpectedSize requires the header's decompressed size to equal n.
// A mismatch fails with ard.ErrIntegrity before any byte is written.
func WithExpectedSize(n uint32) DecodeOption {
	return func(c *decodeConfig) {
		c.expectedSize = n
		c.checkSize = true
	}
}

// WithBuffer sets the intermediate copy buffer.
// By default a buffer of ard.CopyBufferSize bytes is allocated per call.
func WithBuffer(buf []byte) DecodeOption {
	return func(c *decodeConfig) {
		c.buf = buf
	}
}

// Decode reads the container starting at start in src and writes exactly
// the header's decompressed size to dst. The payload is never read to EOF:
// a data file holds sibling entries right after it.
func Decode(src io.ReadSeeker, start int64, dst io.Writer, opts ...DecodeOption) (*Header, error) {
	cfg := decodeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to container at %d: %w", start, err)
	}

	h, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}

	if cfg.checkSize && h.DecompressedSize != cfg.expectedSize {
		return h, &ard.IntegrityError{
			Expected: uint64(cfg.expectedSize),
			Actual:   uint64(h.DecompressedSize),
			Reason:   "container decompressed size disagrees with archive header",
		}
	}

	if _, err := src.Seek(start+HeaderSize, io.SeekStart); err != nil {
		return h, fmt.Errorf("failed to seek to container payload at %d: %w", start+HeaderSize, err)
	}

	dec, release, err := newDecompressor(h.Compression, src)
	if err != nil {
		return h, err
	}
	defer release()

	n, err := ard.CopyExact(dst, dec, int64(h.DecompressedSize), cfg.buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return h, &ard.IntegrityError{
				Expected: uint64(h.DecompressedSize),
				Actual:   uint64(n),
				Reason:   "container stream ended early",
			}
		}
		return h, fmt.Errorf("failed to decompress %s container: %w", h.Compression, err)
	}

	return h, nil
}

// newDecompressor returns a reader of decompressed bytes over r and a
// function releasing its resources.
func newDecompressor(c Compression, r io.Reader) (io.Reader, func(), error) {
	switch c {
	case CompressionZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to open zlib stream: %w", ard.ErrFormat, err)
		}
		return zr, func() { zr.Close() }, nil

	case CompressionZstd:
		// decode synchronously, the data file continues past the frame
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return zr, zr.Close, nil

	default:
		return nil, nil, &ard.UnsupportedCompressionError{Type: uint32(c)}
	}
}
