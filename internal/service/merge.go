package service

import (
	"context"
	"fmt"
	"io"

	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/logging"
	"github.com/zzenonn/raiden/internal/placement"
)

// Merge reassembles source from diskCount disks. The restored file is only
// created once the disk set has been opened and validated; if reassembly
// fails afterwards the partial restored file is removed.
func (s *StripeService) Merge(ctx context.Context, source string, diskCount int) error {
	logger := logging.ForDiskSet(source, diskCount)

	layout, err := s.layout(diskCount)
	if err != nil {
		return err
	}

	set, err := OpenDiskSet(ctx, s.repo, source, diskCount)
	if err != nil {
		return err
	}
	defer set.Close()

	restored, err := s.repo.CreateRestored(ctx, source)
	if err != nil {
		return err
	}

	if missing, ok := set.Missing(); ok {
		logger.Infof("Reconstructing disk %d while merging", missing)
	}

	err = s.reassemble(ctx, set, layout, s.progressWriter(restored, int64(set.Length), "merging"))
	if closeErr := restored.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("unable to write to the restored file: %w", closeErr)
	}

	if err != nil {
		if rmErr := s.repo.RemoveRestored(ctx, source); rmErr != nil {
			logger.Warnf("Failed to remove partial restored file: %v", rmErr)
		}
		return err
	}

	return nil
}

func (s *StripeService) reassemble(ctx context.Context, set *DiskSet, layout placement.Layout, w io.Writer) error {
	codec, err := NewParityCodec(layout)
	if err != nil {
		return err
	}

	stripe := domain.NewStripe(layout.DiskCount, s.chunkSize)
	missing, degraded := set.Missing()
	remaining := set.Length

	for index := uint64(0); remaining > 0; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := set.ReadStripe(stripe); err != nil {
			return err
		}

		// A missing parity chunk is never written, so only data is repaired.
		if degraded && !layout.IsParity(index, missing) {
			if err := codec.Reconstruct(stripe, index, missing, true); err != nil {
				return err
			}
		}

		remaining, err = writeDataChunks(w, stripe.Chunks, layout.DataSlots(index), remaining)
		if err != nil {
			return err
		}
	}

	return nil
}

// writeDataChunks writes the data chunks at slots in order, trimming the
// output to remaining bytes. It returns the bytes still to be written.
func writeDataChunks(w io.Writer, chunks []domain.Chunk, slots []int, remaining uint64) (uint64, error) {
	for _, slot := range slots {
		chunk := chunks[slot]

		toWrite := uint64(len(chunk))
		if remaining < toWrite {
			toWrite = remaining
		}

		if _, err := w.Write(chunk[:toWrite]); err != nil {
			return remaining, fmt.Errorf("unable to write to the restored file: %w", err)
		}
		remaining -= toWrite

		if remaining == 0 {
			return 0, nil
		}
	}

	return remaining, nil
}
