package stream

import (
	"context"
	"io"
	"sync"
)

// defaultHighWater bounds how much undelivered data a PipeSink buffers
// before it signals backpressure to the producer.
const defaultHighWater = 8 * 1024 * 1024

// PipeSink adapts the Sink contract to an io.Reader. The producer pushes
// chunks in, a consumer (an HTTP response, typically) reads them out, and
// the sink reports saturation once more than highWater bytes sit
// undelivered.
type PipeSink struct {
	mu sync.Mutex

	chunks   [][]byte
	buffered int

	highWater int
	saturated bool

	ready    chan struct{} // closed when the sink drains below highWater
	readable chan struct{} // closed when data or a terminal state arrives

	contentType string
	totalLength int64
	described   bool

	closed bool
	failed error
	done   chan struct{}
}

// NewPipeSink returns a PipeSink with the given high-water mark.
// highWater <= 0 selects the default.
func NewPipeSink(highWater int) *PipeSink {
	if highWater <= 0 {
		highWater = defaultHighWater
	}
	return &PipeSink{
		highWater: highWater,
		done:      make(chan struct{}),
	}
}

func (s *PipeSink) Describe(contentType string, totalLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.described {
		return
	}
	s.described = true
	s.contentType = contentType
	s.totalLength = totalLength
}

// ContentType reports the metadata set by Describe.
func (s *PipeSink) ContentType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentType
}

// TotalLength reports the metadata set by Describe.
func (s *PipeSink) TotalLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLength
}

func (s *PipeSink) Push(p []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failed != nil {
		return false, s.failed
	}
	if s.closed {
		return false, ErrSinkClosed
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	s.chunks = append(s.chunks, buf)
	s.buffered += len(buf)
	s.wakeReaders()

	if s.buffered >= s.highWater {
		s.saturated = true
		return false, nil
	}
	return true, nil
}

func (s *PipeSink) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.saturated || s.closed || s.failed != nil {
		return closedReady
	}
	if s.ready == nil {
		s.ready = make(chan struct{})
	}
	return s.ready
}

func (s *PipeSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed != nil {
		return
	}
	s.failed = err
	s.terminalLocked()
}

func (s *PipeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed != nil {
		return nil
	}
	s.closed = true
	s.terminalLocked()
	return nil
}

// Read drains buffered chunks. After the buffer is empty it returns io.EOF
// for a closed sink, or the failure for a failed one; bytes delivered
// before the failure are still readable first.
func (s *PipeSink) Read(p []byte) (int, error) {
	for {
		s.mu.Lock()
		if len(s.chunks) > 0 {
			head := s.chunks[0]
			n := copy(p, head)
			if n < len(head) {
				s.chunks[0] = head[n:]
			} else {
				s.chunks = s.chunks[1:]
			}
			s.buffered -= n
			s.maybeDrainLocked()
			s.mu.Unlock()
			return n, nil
		}

		if s.failed != nil {
			err := s.failed
			s.mu.Unlock()
			return 0, err
		}
		if s.closed {
			s.mu.Unlock()
			return 0, io.EOF
		}

		if s.readable == nil {
			s.readable = make(chan struct{})
		}
		ch := s.readable
		s.mu.Unlock()

		<-ch
	}
}

// Wait blocks until the sink reaches a terminal state and returns the
// failure, if any.
func (s *PipeSink) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.failed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *PipeSink) maybeDrainLocked() {
	if s.saturated && s.buffered < s.highWater {
		s.saturated = false
		if s.ready != nil {
			close(s.ready)
			s.ready = nil
		}
	}
}

func (s *PipeSink) wakeReaders() {
	if s.readable != nil {
		close(s.readable)
		s.readable = nil
	}
}

func (s *PipeSink) terminalLocked() {
	s.wakeReaders()
	if s.ready != nil {
		close(s.ready)
		s.ready = nil
	}
	close(s.done)
}
