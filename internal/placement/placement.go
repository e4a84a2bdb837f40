// Package placement decides which disk of a set holds the parity chunk of a
// stripe and which disks hold its data.
//
// Key Concepts:
// - Stripe: one chunk per disk at a given sequential index
// - Rotating Parity: the parity chunk of stripe s lives on disk s mod N
// - Data Slots: the remaining N-1 disks, in ascending index order, hold a
//   contiguous window of the source file
//
// Placement is a pure function of the stripe index and disk count. Split,
// merge, verify and rebuild all derive the layout from it, so no rotating
// state has to be kept in step between them.
//
// Example (3 disks):
//
//	layout := NewLayout(3)
//	layout.ParitySlot(0) // 0
//	layout.DataSlots(0)  // [1 2]
//	layout.ParitySlot(1) // 1
//	layout.DataSlots(1)  // [0 2]
package placement

import (
	"fmt"

	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// MaxDiskCount bounds a disk set to the shard count of a GF(2^8) code.
const MaxDiskCount = 256

// ParitySlot returns the disk index holding parity for stripeIndex.
func ParitySlot(stripeIndex uint64, diskCount int) int {
	return int(stripeIndex % uint64(diskCount))
}

// Layout describes the stripe geometry of a disk set.
type Layout struct {
	DiskCount int
}

// NewLayout creates a layout for diskCount disks
func NewLayout(diskCount int) Layout {
	return Layout{DiskCount: diskCount}
}

// Validate rejects disk counts that cannot carry a parity chunk.
// Two disks are accepted; the parity chunk is then a copy of the data chunk.
func (l Layout) Validate() error {
	if l.DiskCount < 2 || l.DiskCount > MaxDiskCount {
		return fmt.Errorf("%w: got %d", raidErrors.ErrInvalidDiskCount, l.DiskCount)
	}
	return nil
}

// ParitySlot returns the parity disk for a stripe.
func (l Layout) ParitySlot(stripeIndex uint64) int {
	return ParitySlot(stripeIndex, l.DiskCount)
}

// DataSlots returns the data disks for a stripe in ascending order.
func (l Layout) DataSlots(stripeIndex uint64) []int {
	parity := l.ParitySlot(stripeIndex)
	slots := make([]int, 0, l.DiskCount-1)
	for i := 0; i < l.DiskCount; i++ {
		if i == parity {
			continue
		}
		slots = append(slots, i)
	}
	return slots
}

// IsParity reports whether disk holds parity for the stripe.
func (l Layout) IsParity(stripeIndex uint64, disk int) bool {
	return l.ParitySlot(stripeIndex) == disk
}
