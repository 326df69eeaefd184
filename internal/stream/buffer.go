package stream

import (
	"bytes"
	"context"
	"sync"
)

// BufferSink collects the whole stream in memory. It never signals
// backpressure; it exists for small objects and for tests.
type BufferSink struct {
	mu  sync.Mutex
	buf bytes.Buffer

	contentType string
	totalLength int64
	described   bool

	closed bool
	failed error
	done   chan struct{}
}

func NewBufferSink() *BufferSink {
	return &BufferSink{done: make(chan struct{})}
}

func (s *BufferSink) Describe(contentType string, totalLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.described {
		return
	}
	s.described = true
	s.contentType = contentType
	s.totalLength = totalLength
}

func (s *BufferSink) Push(p []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed != nil {
		return false, s.failed
	}
	if s.closed {
		return false, ErrSinkClosed
	}
	s.buf.Write(p)
	return true, nil
}

func (s *BufferSink) Ready() <-chan struct{} {
	return closedReady
}

func (s *BufferSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed != nil {
		return
	}
	s.failed = err
	close(s.done)
}

func (s *BufferSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed != nil {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Wait blocks until the sink reaches a terminal state and returns the
// failure, if any.
func (s *BufferSink) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.failed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bytes returns everything pushed so far.
func (s *BufferSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Bytes()
}

// ContentType reports the metadata set by Describe.
func (s *BufferSink) ContentType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentType
}

// TotalLength reports the metadata set by Describe.
func (s *BufferSink) TotalLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLength
}
