package service_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zzenonn/raiden/internal/domain"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
	"github.com/zzenonn/raiden/internal/repository/diskstore"
	"github.com/zzenonn/raiden/internal/service"
)

func newLocalService(chunkSize int) *service.StripeService {
	return service.NewStripeService(diskstore.NewLocalDiskRepository(), chunkSize, true)
}

func writeSource(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	return path
}

func randomBytes(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("Failed to generate random data: %v", err)
	}
	return data
}

func readRestored(t *testing.T, source string) []byte {
	t.Helper()
	data, err := os.ReadFile(diskstore.RestoredPath(source))
	if err != nil {
		t.Fatalf("Failed to read restored file: %v", err)
	}
	return data
}

func assertNoRestored(t *testing.T, source string) {
	t.Helper()
	if _, err := os.Stat(diskstore.RestoredPath(source)); !os.IsNotExist(err) {
		t.Errorf("restored file exists after failed merge (stat error: %v)", err)
	}
}

// TestStripeService_ThreeDiskLayout checks the exact disk contents of a small split.
func TestStripeService_ThreeDiskLayout(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	s := newLocalService(domain.LegacyChunkSize)

	if err := s.Split(ctx, source, 3); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	header := []byte{10, 0, 0, 0, 0, 0, 0, 0}
	want := map[int][]byte{
		// stripe 0: parity on disk 0; stripe 1: parity on disk 1
		0: append(append([]byte{}, header...), 4, 4, 4, 12, 9, 10, 0, 0),
		1: append(append([]byte{}, header...), 1, 2, 3, 4, 9, 10, 0, 0),
		2: append(append([]byte{}, header...), 5, 6, 7, 8, 0, 0, 0, 0),
	}

	for i, expected := range want {
		got, err := os.ReadFile(diskstore.DiskPath(source, i))
		if err != nil {
			t.Fatalf("Failed to read disk %d: %v", i, err)
		}
		if !bytes.Equal(got, expected) {
			t.Errorf("disk %d = %v, want %v", i, got, expected)
		}
	}

	if err := os.Remove(diskstore.DiskPath(source, 2)); err != nil {
		t.Fatalf("Failed to remove disk: %v", err)
	}

	if err := s.Merge(ctx, source, 3); err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}

	if got := readRestored(t, source); !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}) {
		t.Errorf("restored = %v", got)
	}
}

// TestStripeService_RoundTrip verifies split followed by merge reproduces the source.
func TestStripeService_RoundTrip(t *testing.T) {
	const chunkSize = 16

	tests := []struct {
		name      string
		diskCount int
		size      int
	}{
		{"empty file", 3, 0},
		{"single byte", 3, 1},
		{"mirror", 2, 100},
		{"exact stripe multiple", 3, 2 * chunkSize * 4},
		{"exact single stripe", 5, 4 * chunkSize},
		{"partial stripe", 5, 4*chunkSize*3 + 7},
		{"ten disks", 10, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			original := randomBytes(t, tt.size)
			source := writeSource(t, original)
			s := newLocalService(chunkSize)

			if err := s.Split(ctx, source, tt.diskCount); err != nil {
				t.Fatalf("Split() failed: %v", err)
			}
			if err := s.Merge(ctx, source, tt.diskCount); err != nil {
				t.Fatalf("Merge() failed: %v", err)
			}

			if got := readRestored(t, source); !bytes.Equal(got, original) {
				t.Errorf("restored %d bytes do not match original %d bytes", len(got), len(original))
			}
		})
	}
}

// TestStripeService_SingleDiskFailure removes or truncates each disk in turn.
func TestStripeService_SingleDiskFailure(t *testing.T) {
	const diskCount = 5

	original := randomBytes(t, 1024)
	originalHash := sha256.Sum256(original)

	for _, truncate := range []bool{false, true} {
		for missing := 0; missing < diskCount; missing++ {
			ctx := context.Background()
			source := writeSource(t, original)
			s := newLocalService(8)

			if err := s.Split(ctx, source, diskCount); err != nil {
				t.Fatalf("Split() failed: %v", err)
			}

			path := diskstore.DiskPath(source, missing)
			var err error
			if truncate {
				err = os.Truncate(path, 0)
			} else {
				err = os.Remove(path)
			}
			if err != nil {
				t.Fatalf("Failed to disable disk %d: %v", missing, err)
			}

			if err := s.Merge(ctx, source, diskCount); err != nil {
				t.Fatalf("Merge() with disk %d missing (truncate=%v) failed: %v", missing, truncate, err)
			}

			if sha256.Sum256(readRestored(t, source)) != originalHash {
				t.Errorf("restored file differs with disk %d missing (truncate=%v)", missing, truncate)
			}
		}
	}
}

// TestStripeService_DoubleDiskFailure disables two disks, by deletion or by
// truncating the header away, and expects merge to refuse the set.
func TestStripeService_DoubleDiskFailure(t *testing.T) {
	const diskCount = 4

	type disabled struct {
		index    int
		truncate bool
	}

	tests := []struct {
		name  string
		disks []disabled
	}{
		{"stripe zero parity and first data disk", []disabled{{0, false}, {1, false}}},
		{"stripe zero parity truncated, last disk deleted", []disabled{{0, true}, {3, false}}},
		{"two data disks", []disabled{{1, false}, {3, false}}},
		{"header truncated and deleted", []disabled{{1, true}, {2, false}}},
		{"both headers truncated", []disabled{{2, true}, {3, true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			source := writeSource(t, randomBytes(t, 300))
			s := newLocalService(8)

			if err := s.Split(ctx, source, diskCount); err != nil {
				t.Fatalf("Split() failed: %v", err)
			}

			for _, d := range tt.disks {
				path := diskstore.DiskPath(source, d.index)
				var err error
				if d.truncate {
					err = os.Truncate(path, domain.DiskHeaderSize-1)
				} else {
					err = os.Remove(path)
				}
				if err != nil {
					t.Fatalf("Failed to disable disk %d: %v", d.index, err)
				}
			}

			err := s.Merge(ctx, source, diskCount)
			if !errors.Is(err, raidErrors.ErrTooManyMissingDisks) {
				t.Fatalf("Merge() error = %v, want ErrTooManyMissingDisks", err)
			}
			assertNoRestored(t, source)
		})
	}
}

func TestStripeService_InconsistentLength(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, randomBytes(t, 100))
	s := newLocalService(8)

	if err := s.Split(ctx, source, 3); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	f, err := os.OpenFile(diskstore.DiskPath(source, 1), os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("Failed to open disk: %v", err)
	}
	if _, err := f.WriteAt([]byte{99}, 0); err != nil {
		t.Fatalf("Failed to edit header: %v", err)
	}
	f.Close()

	err = s.Merge(ctx, source, 3)
	if !errors.Is(err, raidErrors.ErrInconsistentLength) {
		t.Fatalf("Merge() error = %v, want ErrInconsistentLength", err)
	}
	assertNoRestored(t, source)
}

func TestStripeService_TruncatedDisk(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, randomBytes(t, 200))
	s := newLocalService(8)

	if err := s.Split(ctx, source, 3); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	path := diskstore.DiskPath(source, 1)
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat disk: %v", err)
	}
	if err := os.Truncate(path, stat.Size()-20); err != nil {
		t.Fatalf("Failed to truncate disk: %v", err)
	}

	err = s.Merge(ctx, source, 3)
	if !errors.Is(err, raidErrors.ErrShortRead) {
		t.Fatalf("Merge() error = %v, want ErrShortRead", err)
	}

	var diskErr *raidErrors.DiskError
	if !errors.As(err, &diskErr) || diskErr.Index != 1 {
		t.Errorf("Merge() error = %v, want DiskError for disk 1", err)
	}
	assertNoRestored(t, source)
}

func TestStripeService_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, []byte("hello"))

	tests := []struct {
		name      string
		chunkSize int
		diskCount int
		wantErr   error
	}{
		{"one disk", 4, 1, raidErrors.ErrInvalidDiskCount},
		{"zero disks", 4, 0, raidErrors.ErrInvalidDiskCount},
		{"zero chunk size", 0, 3, raidErrors.ErrInvalidChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newLocalService(tt.chunkSize)
			if err := s.Split(ctx, source, tt.diskCount); !errors.Is(err, tt.wantErr) {
				t.Errorf("Split() error = %v, want %v", err, tt.wantErr)
			}
			if err := s.Merge(ctx, source, tt.diskCount); !errors.Is(err, tt.wantErr) {
				t.Errorf("Merge() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := os.Stat(diskstore.DiskPath(source, 0)); !os.IsNotExist(err) {
		t.Error("disk created for an invalid split")
	}
}

func TestStripeService_MissingSource(t *testing.T) {
	source := filepath.Join(t.TempDir(), "does-not-exist")
	if err := newLocalService(4).Split(context.Background(), source, 3); err == nil {
		t.Fatal("Split() of a missing source succeeded")
	}
}

func TestStripeService_CancelledContext(t *testing.T) {
	source := writeSource(t, randomBytes(t, 64))
	s := newLocalService(4)

	if err := s.Split(context.Background(), source, 3); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Merge(ctx, source, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("Merge() error = %v, want context.Canceled", err)
	}
	assertNoRestored(t, source)

	if err := s.Split(ctx, source, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("Split() error = %v, want context.Canceled", err)
	}
}

func TestSplitMerge_Defaults(t *testing.T) {
	ctx := context.Background()
	original := randomBytes(t, 3*4096+17)
	source := writeSource(t, original)

	if err := service.Split(ctx, source, 4); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if err := os.Remove(diskstore.DiskPath(source, 0)); err != nil {
		t.Fatalf("Failed to remove disk: %v", err)
	}
	if err := service.Merge(ctx, source, 4); err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}

	if got := readRestored(t, source); !bytes.Equal(got, original) {
		t.Error("restored file does not match original")
	}
}

// TestStripeService_ChunkSizeMismatch merges a legacy 4-byte chunk set with
// the default chunk size. The chunk size is not on disk, so the mismatch
// surfaces as a short read and no restored file is left.
func TestStripeService_ChunkSizeMismatch(t *testing.T) {
	ctx := context.Background()
	source := writeSource(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	if err := newLocalService(domain.LegacyChunkSize).Split(ctx, source, 3); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	err := newLocalService(domain.DefaultChunkSize).Merge(ctx, source, 3)
	if !errors.Is(err, raidErrors.ErrShortRead) {
		t.Fatalf("Merge() error = %v, want ErrShortRead", err)
	}
	assertNoRestored(t, source)
}

func TestStripeService_InMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	original := []byte("The quick brown fox jumps over the lazy dog")

	repo := newMockDiskRepository(original)
	s := service.NewStripeService(repo, 5, true)
	if s.ChunkSize() != 5 {
		t.Fatalf("ChunkSize() = %d, want 5", s.ChunkSize())
	}

	if err := s.Split(ctx, "fox", 4); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(repo.disks) != 4 {
		t.Fatalf("Split() created %d disks, want 4", len(repo.disks))
	}

	delete(repo.disks, 3)

	if err := s.Merge(ctx, "fox", 4); err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if !bytes.Equal(repo.restored.Bytes(), original) {
		t.Errorf("restored = %q, want %q", repo.restored.Bytes(), original)
	}
}

func TestStripeService_CreateDiskError(t *testing.T) {
	repo := newMockDiskRepository([]byte("payload"))
	repo.createDiskFunc = func(index int) error {
		if index == 2 {
			return errors.New("disk full")
		}
		return nil
	}

	err := service.NewStripeService(repo, 4, true).Split(context.Background(), "payload", 3)

	var diskErr *raidErrors.DiskError
	if !errors.As(err, &diskErr) || diskErr.Index != 2 || diskErr.Op != "create" {
		t.Fatalf("Split() error = %v, want create DiskError for disk 2", err)
	}

	for i, buf := range repo.disks {
		if buf.Len() != domain.DiskHeaderSize {
			t.Errorf("disk %d has %d bytes, want header only", i, buf.Len())
		}
	}
}

func TestStripeService_RestoredWriteError(t *testing.T) {
	ctx := context.Background()
	repo := newMockDiskRepository([]byte("some data to stripe"))
	s := service.NewStripeService(repo, 4, true)

	if err := s.Split(ctx, "data", 3); err != nil {
		t.Fatalf("Split() failed: %v", err)
	}

	writeErr := errors.New("no space left")
	repo.restoredWriter = failingWriter{err: writeErr}

	err := s.Merge(ctx, "data", 3)
	if !errors.Is(err, writeErr) {
		t.Fatalf("Merge() error = %v, want %v", err, writeErr)
	}
	if !repo.removedRestored {
		t.Error("partial restored file was not removed")
	}
}
