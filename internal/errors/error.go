package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDiskCount    = errors.New("disk count must be between 2 and 256")
	ErrInvalidChunkSize    = errors.New("chunk size must be positive")
	ErrInconsistentLength  = errors.New("inconsistent file lengths across disks")
	ErrTooManyMissingDisks = errors.New("too many missing disks")
	ErrNoDisksAvailable    = errors.New("no disks available")
	ErrShortRead           = errors.New("read unexpected amount of bytes")
	ErrShortHeader         = errors.New("disk header is truncated")
	ErrDiskUnavailable     = errors.New("disk unavailable")
	ErrDiskMissing         = errors.New("disk is missing")
	ErrParityMismatch      = errors.New("stripe parity does not match")
	ErrTrailingData        = errors.New("unexpected data after last stripe")
	ErrNothingToRebuild    = errors.New("no missing disk to rebuild")
)

// DiskError records a failed operation against a single disk of a set.
type DiskError struct {
	Index int
	Op    string
	Err   error
}

func (e *DiskError) Error() string {
	return fmt.Sprintf("%s disk %d: %v", e.Op, e.Index, e.Err)
}

func (e *DiskError) Unwrap() error {
	return e.Err
}

// NewDiskError wraps err with the disk index and operation it failed on.
func NewDiskError(op string, index int, err error) error {
	return &DiskError{Index: index, Op: op, Err: err}
}

// InconsistentLengthError reports two disks disagreeing on the source length.
func InconsistentLengthError(index int, want, got uint64) error {
	return fmt.Errorf("%w: disk %d reports %d, expected %d", ErrInconsistentLength, index, got, want)
}
