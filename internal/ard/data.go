package ard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ReadEntryRecord reads one 16-byte header record. The returned entry has no
// offset assigned.
func ReadEntryRecord(r io.Reader) (FileEntry, error) {
	var rec [EntryRecordSize]byte
	if _, err := io.ReadFull(r, rec[:]); err != nil {
		return FileEntry{}, fmt.Errorf("failed to read entry record: %w", err)
	}

	return FileEntry{
		Hash:         binary.LittleEndian.Uint64(rec[0:8]),
		DiskSize:     binary.LittleEndian.Uint32(rec[8:12]),
		ExpandedSize: binary.LittleEndian.Uint32(rec[12:16]),
	}, nil
}

// PeekMagic reads the 4 bytes at the current position of rs and seeks back.
// A stream with fewer than 4 bytes left yields a zero magic and no error,
// since short raw entries are valid.
func PeekMagic(rs io.ReadSeeker) (magic [4]byte, err error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return magic, fmt.Errorf("failed to get current position: %w", err)
	}
	defer func() {
		if _, seekErr := rs.Seek(pos, io.SeekStart); seekErr != nil && err == nil {
			err = fmt.Errorf("failed to seek back to %d: %w", pos, seekErr)
		}
	}()

	if _, err := io.ReadFull(rs, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return [4]byte{}, nil
		}
		return magic, fmt.Errorf("failed to read magic: %w", err)
	}
	return magic, nil
}

// CopyExact copies exactly n bytes from src to dst through buf, never asking
// src for more than the remaining count. It does not rely on src reaching
// EOF: bytes past n are left unread. If src runs dry first, CopyExact returns
// io.ErrUnexpectedEOF along with the number of bytes written.
//
// A nil or empty buf allocates one of CopyBufferSize bytes.
func CopyExact(dst io.Writer, src io.Reader, n int64, buf []byte) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, CopyBufferSize)
	}

	var written int64
	for written < n {
		chunk := buf
		if rem := n - written; rem < int64(len(chunk)) {
			chunk = chunk[:rem]
		}

		read, err := io.ReadFull(src, chunk)
		if read > 0 {
			w, werr := dst.Write(chunk[:read])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != read {
				return written, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return written, err
		}
	}
	return written, nil
}
