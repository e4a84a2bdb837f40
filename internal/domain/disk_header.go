package domain

import (
	"encoding/binary"
	"fmt"

	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// DiskHeaderSize is the number of bytes preceding the first chunk of a disk.
const DiskHeaderSize = 8

// DiskHeader - the prefix written at offset 0 of every disk
type DiskHeader struct {
	FileLength uint64 // Length of the source file in bytes
}

// MarshalBinary encodes the header as a little-endian uint64.
func (h DiskHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DiskHeaderSize)
	binary.LittleEndian.PutUint64(buf, h.FileLength)
	return buf, nil
}

// UnmarshalBinary decodes the header from the first DiskHeaderSize bytes of data.
func (h *DiskHeader) UnmarshalBinary(data []byte) error {
	if len(data) < DiskHeaderSize {
		return fmt.Errorf("%w: got %d bytes", raidErrors.ErrShortHeader, len(data))
	}
	h.FileLength = binary.LittleEndian.Uint64(data[:DiskHeaderSize])
	return nil
}
