package archive

import (
	"errors"
	"fmt"
)

const (
	// Magic identifies archive files (ASCII: "BVW1").
	Magic = 0x42565731
	// Version is the current format version.
	Version = 1

	headerSize = 32
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrCorrupt            = errors.New("corrupt archive")
	ErrMissingArray       = errors.New("array not found")
	ErrTypeMismatch       = errors.New("array type mismatch")
	ErrShape              = errors.New("shape does not match data length")
)

// Header is the fixed-size header at the start of every archive.
type Header struct {
	Magic       uint32
	Version     uint32
	Compression Compression
	Padding     [3]byte
	Entries     uint32
	PayloadLen  uint64 // uncompressed
	Checksum    uint32 // CRC32 of the uncompressed payload
	Reserved    uint32
}

// ChecksumMismatchError reports a payload whose CRC32 does not match the header.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %08x, got %08x", e.Expected, e.Actual)
}

// Is matches ErrChecksumMismatch.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// DType is the element type of an array.
type DType uint8

const (
	Float64 DType = 1
	Int64   DType = 2
)

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}
