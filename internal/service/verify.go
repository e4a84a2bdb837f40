package service

import (
	"context"
	"fmt"

	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/logging"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// VerifyReport summarises a parity scrub of a disk set.
type VerifyReport struct {
	Length              uint64
	Stripes             uint64
	InconsistentStripes []uint64
}

// Verify reads every stripe of a complete disk set and checks that its
// chunks XOR to zero. All disks must be present.
func (s *StripeService) Verify(ctx context.Context, source string, diskCount int) (VerifyReport, error) {
	logger := logging.ForDiskSet(source, diskCount)

	layout, err := s.layout(diskCount)
	if err != nil {
		return VerifyReport{}, err
	}

	codec, err := NewParityCodec(layout)
	if err != nil {
		return VerifyReport{}, err
	}

	set, err := OpenDiskSet(ctx, s.repo, source, diskCount)
	if err != nil {
		return VerifyReport{}, err
	}
	defer set.Close()

	if missing, ok := set.Missing(); ok {
		return VerifyReport{}, raidErrors.NewDiskError("verify", missing, raidErrors.ErrDiskMissing)
	}

	report := VerifyReport{
		Length:  set.Length,
		Stripes: domain.StripeCount(set.Length, diskCount, s.chunkSize),
	}

	stripe := domain.NewStripe(diskCount, s.chunkSize)
	for index := uint64(0); index < report.Stripes; index++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := set.ReadStripe(stripe); err != nil {
			return report, err
		}

		ok, err := codec.Verify(stripe, index)
		if err != nil {
			return report, err
		}
		if !ok {
			logger.Warnf("Stripe %d fails parity check", index)
			report.InconsistentStripes = append(report.InconsistentStripes, index)
		}
	}

	if err := set.CheckExhausted(); err != nil {
		return report, err
	}

	if len(report.InconsistentStripes) > 0 {
		return report, fmt.Errorf("%w: %d of %d stripes", raidErrors.ErrParityMismatch, len(report.InconsistentStripes), report.Stripes)
	}

	logger.Infof("Verified %d stripes", report.Stripes)
	return report, nil
}
