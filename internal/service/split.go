package service

import (
	"context"
	"fmt"
	"io"

	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/logging"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// Split stripes source over diskCount disks. Every disk is created and
// given its header before the first stripe is written. The loop ends after
// the stripe in which end of file was reached, so that stripe is always
// written, even when it holds nothing but padding.
func (s *StripeService) Split(ctx context.Context, source string, diskCount int) error {
	logger := logging.ForDiskSet(source, diskCount)

	layout, err := s.layout(diskCount)
	if err != nil {
		return err
	}

	codec, err := NewParityCodec(layout)
	if err != nil {
		return err
	}

	src, length, err := s.repo.OpenSource(ctx, source)
	if err != nil {
		return err
	}
	defer src.Close()

	header := domain.DiskHeader{FileLength: uint64(length)}
	disks, err := s.createDisks(ctx, source, diskCount, header)
	if err != nil {
		return err
	}

	logger.Infof("Splitting %d bytes", length)

	reader := s.progressReader(src, length, "splitting")
	stripe := domain.NewStripe(diskCount, s.chunkSize)

	eof := false
	var index uint64
	for ; !eof; index++ {
		if err := ctx.Err(); err != nil {
			closeWriters(disks)
			return err
		}

		eof, err = readDataChunks(reader, stripe.Chunks, layout.DataSlots(index))
		if err != nil {
			closeWriters(disks)
			return err
		}

		if err := codec.Encode(stripe, index); err != nil {
			closeWriters(disks)
			return err
		}

		if err := writeChunks(disks, stripe.Chunks); err != nil {
			closeWriters(disks)
			return err
		}
	}

	logger.Debugf("Wrote %d stripes", index)

	for i, disk := range disks {
		if err := disk.Close(); err != nil {
			closeWriters(disks[i+1:])
			return raidErrors.NewDiskError("close", i, err)
		}
	}
	return nil
}

func (s *StripeService) createDisks(ctx context.Context, source string, diskCount int, header domain.DiskHeader) ([]io.WriteCloser, error) {
	disks := make([]io.WriteCloser, 0, diskCount)

	for i := 0; i < diskCount; i++ {
		disk, err := s.repo.CreateDisk(ctx, source, i, header)
		if err != nil {
			closeWriters(disks)
			return nil, raidErrors.NewDiskError("create", i, err)
		}
		disks = append(disks, disk)
	}

	return disks, nil
}

// readDataChunks fills the data chunks at slots, in order, from r. A short
// read marks end of file: the rest of that chunk and every later data chunk
// of the stripe are zeroed.
func readDataChunks(r io.Reader, chunks []domain.Chunk, slots []int) (bool, error) {
	eof := false

	for _, slot := range slots {
		chunk := chunks[slot]
		if eof {
			chunk.Zero(0)
			continue
		}

		n, err := io.ReadFull(r, chunk)
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			chunk.Zero(n)
			eof = true
		case err != nil:
			return false, fmt.Errorf("error reading source: %w", err)
		}
	}

	return eof, nil
}

func writeChunks(disks []io.WriteCloser, chunks []domain.Chunk) error {
	for i, disk := range disks {
		if _, err := disk.Write(chunks[i]); err != nil {
			return raidErrors.NewDiskError("write", i, err)
		}
	}
	return nil
}

func closeWriters(writers []io.WriteCloser) {
	for _, w := range writers {
		w.Close()
	}
}
