package service

import (
	"context"
	"fmt"
	"io"

	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/logging"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// DiskSet is the merge-time view of a striped set: the opened disks, the
// source length they agree on and at most one missing disk.
type DiskSet struct {
	Length    uint64
	diskCount int
	disks     map[int]io.ReadCloser
	missing   int
	degraded  bool
}

// OpenDiskSet opens every disk of source and reads its header. A disk that
// cannot be opened or whose header cannot be read is recorded as missing.
// A second missing disk or a header disagreeing with the others aborts
// before any chunk is read.
func OpenDiskSet(ctx context.Context, repo DiskRepository, source string, diskCount int) (*DiskSet, error) {
	logger := logging.ForDiskSet(source, diskCount)

	set := &DiskSet{
		diskCount: diskCount,
		disks:     make(map[int]io.ReadCloser, diskCount),
	}

	haveLength := false
	for i := 0; i < diskCount; i++ {
		disk, header, err := repo.OpenDisk(ctx, source, i)
		if err != nil {
			logger.Warnf("Disk %d is missing: %v", i, err)
			if set.degraded {
				set.Close()
				return nil, fmt.Errorf("%w: disks %d and %d", raidErrors.ErrTooManyMissingDisks, set.missing, i)
			}
			set.missing = i
			set.degraded = true
			continue
		}

		set.disks[i] = disk

		if !haveLength {
			set.Length = header.FileLength
			haveLength = true
			continue
		}
		if header.FileLength != set.Length {
			set.Close()
			return nil, raidErrors.InconsistentLengthError(i, set.Length, header.FileLength)
		}
	}

	if len(set.disks) == 0 {
		return nil, raidErrors.ErrNoDisksAvailable
	}

	logger.Debugf("Opened %d disks, file length %d", len(set.disks), set.Length)
	return set, nil
}

// Missing returns the index of the missing disk, if any.
func (s *DiskSet) Missing() (int, bool) {
	return s.missing, s.degraded
}

// Disk returns the open handle for index, or false if that disk is missing.
func (s *DiskSet) Disk(index int) (io.ReadCloser, bool) {
	disk, ok := s.disks[index]
	return disk, ok
}

// DiskCount returns the number of disks the set was opened with.
func (s *DiskSet) DiskCount() int {
	return s.diskCount
}

// ReadStripe reads the next chunk of every present disk into stripe. The
// chunk of the missing disk is left untouched. A disk returning fewer bytes
// than a full chunk is treated as corrupt.
func (s *DiskSet) ReadStripe(stripe *domain.Stripe) error {
	for i, chunk := range stripe.Chunks {
		disk, ok := s.Disk(i)
		if !ok {
			continue
		}

		n, err := io.ReadFull(disk, chunk)
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			return raidErrors.NewDiskError("read", i, fmt.Errorf("%w: got %d of %d", raidErrors.ErrShortRead, n, len(chunk)))
		case err != nil:
			return raidErrors.NewDiskError("read", i, err)
		}
	}
	return nil
}

// CheckExhausted fails if any present disk holds bytes past the current
// position.
func (s *DiskSet) CheckExhausted() error {
	var extra [1]byte
	for i := 0; i < s.diskCount; i++ {
		disk, ok := s.Disk(i)
		if !ok {
			continue
		}

		n, err := disk.Read(extra[:])
		if n > 0 {
			return raidErrors.NewDiskError("verify", i, raidErrors.ErrTrailingData)
		}
		if err != nil && err != io.EOF {
			return raidErrors.NewDiskError("read", i, err)
		}
	}
	return nil
}

// Close closes every open disk and returns the first error.
func (s *DiskSet) Close() error {
	var first error
	for i, disk := range s.disks {
		if err := disk.Close(); err != nil && first == nil {
			first = raidErrors.NewDiskError("close", i, err)
		}
	}
	return first
}
