package diskstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/raiden/internal/domain"
	raidErrors "github.com/zzenonn/raiden/internal/errors"
)

// LocalDiskRepository manages disk files on the local filesystem.
type LocalDiskRepository struct{}

// NewLocalDiskRepository initializes a new LocalDiskRepository.
func NewLocalDiskRepository() *LocalDiskRepository {
	return &LocalDiskRepository{}
}

// OpenSource opens the file to be split and returns its length.
func (r *LocalDiskRepository) OpenSource(ctx context.Context, source string) (io.ReadCloser, int64, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to open the source file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("cannot stat %s: %w", source, err)
	}

	return file, stat.Size(), nil
}

// CreateDisk creates disk index and writes its header before returning.
func (r *LocalDiskRepository) CreateDisk(ctx context.Context, source string, index int, header domain.DiskHeader) (io.WriteCloser, error) {
	path := DiskPath(source, index)
	log.Debugf("Creating disk %d at %s", index, path)

	w, err := createBuffered(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", path, err)
	}

	data, _ := header.MarshalBinary()
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("unable to write the source file length to %s: %w", path, err)
	}

	return w, nil
}

// OpenDisk opens disk index read-only and consumes its header.
func (r *LocalDiskRepository) OpenDisk(ctx context.Context, source string, index int) (io.ReadCloser, domain.DiskHeader, error) {
	path := DiskPath(source, index)

	file, err := os.Open(path)
	if err != nil {
		return nil, domain.DiskHeader{}, fmt.Errorf("%w: cannot open %s: %v", raidErrors.ErrDiskUnavailable, path, err)
	}

	reader := &bufferedReader{Reader: bufio.NewReader(file), file: file}

	buf := make([]byte, domain.DiskHeaderSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		file.Close()
		return nil, domain.DiskHeader{}, fmt.Errorf("unable to read the file length from %s: %w", path, err)
	}

	var header domain.DiskHeader
	if err := header.UnmarshalBinary(buf[:n]); err != nil {
		file.Close()
		return nil, domain.DiskHeader{}, fmt.Errorf("unable to read the file length from %s: %w", path, err)
	}

	return reader, header, nil
}

// CreateRestored creates (or truncates) the restored file for source.
func (r *LocalDiskRepository) CreateRestored(ctx context.Context, source string) (io.WriteCloser, error) {
	path := RestoredPath(source)
	log.Infof("Restoring the file to %s", path)

	w, err := createBuffered(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the file for restoration at %s: %w", path, err)
	}
	return w, nil
}

// RemoveRestored deletes a partially written restored file.
func (r *LocalDiskRepository) RemoveRestored(ctx context.Context, source string) error {
	err := os.Remove(RestoredPath(source))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// bufferedWriter flushes its buffer before closing the underlying file
type bufferedWriter struct {
	*bufio.Writer
	file *os.File
}

func createBuffered(path string) (*bufferedWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &bufferedWriter{Writer: bufio.NewWriter(file), file: file}, nil
}

func (w *bufferedWriter) Close() error {
	flushErr := w.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

type bufferedReader struct {
	*bufio.Reader
	file *os.File
}

func (r *bufferedReader) Close() error {
	return r.file.Close()
}

// RemoveDisk deletes disk index, used to discard a partially rebuilt disk.
func (r *LocalDiskRepository) RemoveDisk(ctx context.Context, source string, index int) error {
	err := os.Remove(DiskPath(source, index))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
