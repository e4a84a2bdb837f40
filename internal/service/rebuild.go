package service

import (
	"context"
	"io"

	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/logging"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// Rebuild regenerates the file of the single missing disk of a set and
// returns its index. If any stripe fails the partially rebuilt disk is
// removed. A disk that was missing because its header was unreadable is
// overwritten by the rebuild and therefore does not survive a failed one.
func (s *StripeService) Rebuild(ctx context.Context, source string, diskCount int) (int, error) {
	logger := logging.ForDiskSet(source, diskCount)

	layout, err := s.layout(diskCount)
	if err != nil {
		return 0, err
	}

	codec, err := NewParityCodec(layout)
	if err != nil {
		return 0, err
	}

	set, err := OpenDiskSet(ctx, s.repo, source, diskCount)
	if err != nil {
		return 0, err
	}
	defer set.Close()

	missing, ok := set.Missing()
	if !ok {
		return 0, raidErrors.ErrNothingToRebuild
	}

	disk, err := s.repo.CreateDisk(ctx, source, missing, domain.DiskHeader{FileLength: set.Length})
	if err != nil {
		return missing, raidErrors.NewDiskError("create", missing, err)
	}

	stripes := domain.StripeCount(set.Length, diskCount, s.chunkSize)
	logger.Infof("Rebuilding disk %d (%d stripes)", missing, stripes)

	err = s.rebuildStripes(ctx, set, codec, disk, missing, stripes)
	if closeErr := disk.Close(); err == nil && closeErr != nil {
		err = raidErrors.NewDiskError("close", missing, closeErr)
	}

	if err != nil {
		if rmErr := s.repo.RemoveDisk(ctx, source, missing); rmErr != nil {
			logger.Warnf("Failed to remove partially rebuilt disk %d: %v", missing, rmErr)
		}
		return missing, err
	}

	return missing, nil
}

func (s *StripeService) rebuildStripes(ctx context.Context, set *DiskSet, codec *ParityCodec, disk io.Writer, missing int, stripes uint64) error {
	stripe := domain.NewStripe(set.DiskCount(), s.chunkSize)

	for index := uint64(0); index < stripes; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := set.ReadStripe(stripe); err != nil {
			return err
		}

		if err := codec.Reconstruct(stripe, index, missing, false); err != nil {
			return err
		}

		if _, err := disk.Write(stripe.Chunks[missing]); err != nil {
			return raidErrors.NewDiskError("write", missing, err)
		}
	}

	return nil
}
