package domain

// DefaultChunkSize is used when no chunk size is configured. The chunk size
// is not recorded on disk, so a set only merges with the chunk size it was
// split with.
const DefaultChunkSize = 4096

// LegacyChunkSize is the fixed chunk size of the 4-byte chunk disk format.
const LegacyChunkSize = 4

// Chunk is the atomic unit of striping and XOR. Its length is always the
// chunk size of the disk set it belongs to.
type Chunk []byte

// Zero clears the chunk from offset onwards.
func (c Chunk) Zero(offset int) {
	for i := offset; i < len(c); i++ {
		c[i] = 0
	}
}

// Stripe holds one chunk per disk. Buffers are allocated once and reused
// for every stripe of an operation.
type Stripe struct {
	Chunks []Chunk
}

// NewStripe allocates diskCount chunks of chunkSize bytes each.
func NewStripe(diskCount, chunkSize int) *Stripe {
	chunks := make([]Chunk, diskCount)
	for i := range chunks {
		chunks[i] = make(Chunk, chunkSize)
	}
	return &Stripe{Chunks: chunks}
}

// StripeCount returns how many stripes a split of length bytes writes.
// The stripe in which end of file is observed is always written, so a
// length that fills the last stripe exactly is followed by one padding stripe.
func StripeCount(length uint64, diskCount, chunkSize int) uint64 {
	window := uint64(diskCount-1) * uint64(chunkSize)
	return length/window + 1
}
