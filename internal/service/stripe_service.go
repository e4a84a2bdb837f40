// Package service provides the striping engine: splitting a file across a
// set of disks with rotating XOR parity, and reassembling it with at most
// one disk missing.
//
// Key Operations:
// - Split: stripe a source file over N disks, one parity chunk per stripe
// - Merge: reassemble the source, reconstructing a single missing disk
// - Verify: scrub every stripe of a complete set for parity mismatches
// - Rebuild: regenerate the file of a single missing disk
//
// Processing is strictly sequential, one stripe at a time. The context is
// checked between stripes; there is no checkpoint to resume from.
package service

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/zzenonn/raiden/internal/domain"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
	"github.com/zzenonn/raiden/internal/placement"
	"github.com/zzenonn/raiden/internal/repository/diskstore"
)

// DiskRepository addresses the source, the disks and the restored file of
// a striped set.
type DiskRepository interface {
	OpenSource(ctx context.Context, source string) (io.ReadCloser, int64, error)
	CreateDisk(ctx context.Context, source string, index int, header domain.DiskHeader) (io.WriteCloser, error)
	OpenDisk(ctx context.Context, source string, index int) (io.ReadCloser, domain.DiskHeader, error)
	RemoveDisk(ctx context.Context, source string, index int) error
	CreateRestored(ctx context.Context, source string) (io.WriteCloser, error)
	RemoveRestored(ctx context.Context, source string) error
}

type StripeService struct {
	repo      DiskRepository
	chunkSize int
	quiet     bool
}

// NewStripeService creates a new StripeService instance
func NewStripeService(repo DiskRepository, chunkSize int, quiet bool) *StripeService {
	return &StripeService{
		repo:      repo,
		chunkSize: chunkSize,
		quiet:     quiet,
	}
}

// Split stripes source over diskCount local disks with the default chunk size.
func Split(ctx context.Context, source string, diskCount int) error {
	return NewStripeService(diskstore.NewLocalDiskRepository(), domain.DefaultChunkSize, true).Split(ctx, source, diskCount)
}

// Merge restores source from diskCount local disks with the default chunk size.
func Merge(ctx context.Context, source string, diskCount int) error {
	return NewStripeService(diskstore.NewLocalDiskRepository(), domain.DefaultChunkSize, true).Merge(ctx, source, diskCount)
}

// ChunkSize returns the chunk size the service stripes with.
func (s *StripeService) ChunkSize() int {
	return s.chunkSize
}

func (s *StripeService) layout(diskCount int) (placement.Layout, error) {
	if s.chunkSize <= 0 {
		return placement.Layout{}, fmt.Errorf("%w: got %d", raidErrors.ErrInvalidChunkSize, s.chunkSize)
	}

	layout := placement.NewLayout(diskCount)
	if err := layout.Validate(); err != nil {
		return placement.Layout{}, err
	}
	return layout, nil
}

func (s *StripeService) progressReader(r io.Reader, size int64, description string) io.Reader {
	if s.quiet {
		return r
	}
	bar := progressbar.DefaultBytes(size, description)
	pbReader := progressbar.NewReader(r, bar)
	return &pbReader
}

func (s *StripeService) progressWriter(w io.Writer, size int64, description string) io.Writer {
	if s.quiet {
		return w
	}
	bar := progressbar.DefaultBytes(size, description)
	return io.MultiWriter(w, bar)
}
