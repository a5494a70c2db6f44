package ard

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive operations.
var (
	// ErrFormat is returned when a header or container is malformed or truncated.
	ErrFormat = errors.New("ard: malformed archive data")

	// ErrIntegrity is returned when a container's decompressed size disagrees
	// with the size declared by the archive, or its stream ends early.
	ErrIntegrity = errors.New("ard: integrity check failed")

	// ErrUnsupportedCompression is returned for unknown container compression types.
	ErrUnsupportedCompression = errors.New("ard: unsupported compression type")

	// ErrNotFound is returned when a path or hash is absent from the archive.
	ErrNotFound = errors.New("ard: entry not found")

	// ErrMissingCompanionFile is returned when the .ard data file does not
	// exist next to the .arh header file.
	ErrMissingCompanionFile = errors.New("ard: missing companion data file")
)

// IntegrityError reports a size disagreement for one container.
type IntegrityError struct {
	Expected uint64
	Actual   uint64
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s (expected %d, got %d)", ErrIntegrity, e.Reason, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// UnsupportedCompressionError reports an unknown container compression tag.
type UnsupportedCompressionError struct {
	Type uint32
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnsupportedCompression, e.Type)
}

func (e *UnsupportedCompressionError) Unwrap() error {
	return ErrUnsupportedCompression
}
