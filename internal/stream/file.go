package stream

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FileSink writes the stream to a local file. Data goes into a ".part"
// sibling first and is renamed into place on a clean close, so a path
// without the suffix always holds a complete object. A failed download
// leaves the ".part" file behind for inspection.
type FileSink struct {
	mu sync.Mutex

	file  *os.File
	path  string
	part  string
	wrote int64

	// OnWrite, when set, is called with the size of every accepted chunk.
	OnWrite func(n int)

	contentType string
	totalLength int64
	described   bool

	closed bool
	failed error
	done   chan struct{}
}

// NewFileSink opens path + ".part" for writing.
func NewFileSink(path string) (*FileSink, error) {
	part := path + ".part"
	f, err := os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create part file: %w", err)
	}
	return &FileSink{
		file: f,
		path: path,
		part: part,
		done: make(chan struct{}),
	}, nil
}

func (s *FileSink) Describe(contentType string, totalLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.described {
		return
	}
	s.described = true
	s.contentType = contentType
	s.totalLength = totalLength
}

// TotalLength reports the metadata set by Describe.
func (s *FileSink) TotalLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLength
}

// Push writes the chunk through to disk. Disk writes complete inline, so
// the sink never signals backpressure.
func (s *FileSink) Push(p []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		return false, s.failed
	}
	if s.closed {
		return false, ErrSinkClosed
	}

	n, err := s.file.Write(p)
	s.wrote += int64(n)
	if s.OnWrite != nil && n > 0 {
		s.OnWrite(n)
	}
	if err != nil {
		s.failed = fmt.Errorf("write %s: %w", s.part, err)
		s.file.Close()
		close(s.done)
		return false, s.failed
	}
	return true, nil
}

func (s *FileSink) Ready() <-chan struct{} {
	return closedReady
}

func (s *FileSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed != nil {
		return
	}
	s.failed = err
	s.file.Close()
	close(s.done)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed != nil {
		return nil
	}
	s.closed = true

	s.file.Sync()
	if err := s.file.Close(); err != nil {
		s.failed = err
		close(s.done)
		return err
	}
	if err := os.Rename(s.part, s.path); err != nil {
		s.failed = fmt.Errorf("failed to finalize %s: %w", s.path, err)
		close(s.done)
		return s.failed
	}
	close(s.done)
	return nil
}

// Wait blocks until the sink reaches a terminal state and returns the
// failure, if any.
func (s *FileSink) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.failed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BytesWritten reports how many bytes reached the part file.
func (s *FileSink) BytesWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrote
}
