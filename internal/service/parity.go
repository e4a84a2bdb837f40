package service

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
	"github.com/zzenonn/raiden/internal/domain"
	"github.com/zzenonn/raiden/internal/placement"
)

// ParityCodec computes, checks and repairs the parity of a stripe.
//
// It is a Reed-Solomon encoder with N-1 data shards and one parity shard
// built on the single parity matrix, whose parity row is all ones: the
// parity shard is the byte-wise XOR of the data shards, so every stripe
// XORs to zero. The rotating parity slot is a permutation of the chunk
// references handed to the encoder (data slots ascending, then parity),
// not a change in the coding.
type ParityCodec struct {
	enc    reedsolomon.Encoder
	layout placement.Layout
	orders [][]int  // shard position -> disk index, per parity slot
	shards [][]byte // reused per stripe
}

// NewParityCodec creates a codec for the disk count of layout.
func NewParityCodec(layout placement.Layout) (*ParityCodec, error) {
	enc, err := reedsolomon.New(layout.DiskCount-1, 1,
		reedsolomon.WithFastOneParityMatrix(),
		reedsolomon.WithMaxGoroutines(1),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create parity encoder for %d disks: %w", layout.DiskCount, err)
	}

	orders := make([][]int, layout.DiskCount)
	for parity := range orders {
		order := append(layout.DataSlots(uint64(parity)), parity)
		orders[parity] = order
	}

	return &ParityCodec{
		enc:    enc,
		layout: layout,
		orders: orders,
		shards: make([][]byte, layout.DiskCount),
	}, nil
}

// arrange points the shard slice at the stripe's chunks in encoder order and
// returns the shard position of each disk.
func (c *ParityCodec) arrange(stripe *domain.Stripe, index uint64) []int {
	order := c.orders[c.layout.ParitySlot(index)]
	for pos, disk := range order {
		c.shards[pos] = stripe.Chunks[disk]
	}
	return order
}

func (c *ParityCodec) position(order []int, disk int) int {
	for pos, d := range order {
		if d == disk {
			return pos
		}
	}
	return -1
}

// Encode overwrites the parity chunk of stripe index from its data chunks.
func (c *ParityCodec) Encode(stripe *domain.Stripe, index uint64) error {
	c.arrange(stripe, index)
	if err := c.enc.Encode(c.shards); err != nil {
		return fmt.Errorf("unable to compute parity for stripe %d: %w", index, err)
	}
	return nil
}

// Reconstruct recovers the chunk of disk missing from the other chunks of
// stripe index. With dataOnly set a missing parity chunk is left as is.
func (c *ParityCodec) Reconstruct(stripe *domain.Stripe, index uint64, missing int, dataOnly bool) error {
	order := c.arrange(stripe, index)
	pos := c.position(order, missing)

	// A zero-length shard with enough capacity is rebuilt in place.
	c.shards[pos] = c.shards[pos][:0]

	var err error
	if dataOnly {
		err = c.enc.ReconstructData(c.shards)
	} else {
		err = c.enc.Reconstruct(c.shards)
	}
	if err != nil {
		return fmt.Errorf("unable to reconstruct disk %d for stripe %d: %w", missing, index, err)
	}

	if len(c.shards[pos]) > 0 {
		copy(stripe.Chunks[missing], c.shards[pos])
	}
	return nil
}

// Verify reports whether the parity chunk of stripe index matches its data.
func (c *ParityCodec) Verify(stripe *domain.Stripe, index uint64) (bool, error) {
	c.arrange(stripe, index)
	ok, err := c.enc.Verify(c.shards)
	if err != nil {
		return false, fmt.Errorf("unable to verify stripe %d: %w", index, err)
	}
	return ok, nil
}
