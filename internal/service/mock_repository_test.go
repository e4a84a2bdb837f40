package service_test

import (
	"bytes"
	"context"
	"io"

	"github.com/zzenonn/raiden/internal/domain"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// mockDiskRepository is an in-memory implementation of service.DiskRepository for testing.
type mockDiskRepository struct {
	source          []byte
	disks           map[int]*bytes.Buffer
	restored        *bytes.Buffer
	createDiskFunc  func(index int) error
	restoredWriter  io.WriteCloser
	removedRestored bool
	removedDisks    []int
}

func newMockDiskRepository(source []byte) *mockDiskRepository {
	return &mockDiskRepository{
		source: source,
		disks:  make(map[int]*bytes.Buffer),
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type failingWriter struct {
	err error
}

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }
func (w failingWriter) Close() error                { return nil }

func (m *mockDiskRepository) OpenSource(ctx context.Context, source string) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(m.source)), int64(len(m.source)), nil
}

func (m *mockDiskRepository) CreateDisk(ctx context.Context, source string, index int, header domain.DiskHeader) (io.WriteCloser, error) {
	if m.createDiskFunc != nil {
		if err := m.createDiskFunc(index); err != nil {
			return nil, err
		}
	}
	buf := &bytes.Buffer{}
	data, _ := header.MarshalBinary()
	buf.Write(data)
	m.disks[index] = buf
	return nopWriteCloser{buf}, nil
}

func (m *mockDiskRepository) OpenDisk(ctx context.Context, source string, index int) (io.ReadCloser, domain.DiskHeader, error) {
	buf, ok := m.disks[index]
	if !ok {
		return nil, domain.DiskHeader{}, raidErrors.ErrDiskUnavailable
	}

	var header domain.DiskHeader
	if err := header.UnmarshalBinary(buf.Bytes()); err != nil {
		return nil, domain.DiskHeader{}, err
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes()[domain.DiskHeaderSize:])), header, nil
}

func (m *mockDiskRepository) RemoveDisk(ctx context.Context, source string, index int) error {
	delete(m.disks, index)
	m.removedDisks = append(m.removedDisks, index)
	return nil
}

func (m *mockDiskRepository) CreateRestored(ctx context.Context, source string) (io.WriteCloser, error) {
	if m.restoredWriter != nil {
		return m.restoredWriter, nil
	}
	m.restored = &bytes.Buffer{}
	return nopWriteCloser{m.restored}, nil
}

func (m *mockDiskRepository) RemoveRestored(ctx context.Context, source string) error {
	m.removedRestored = true
	return nil
}
