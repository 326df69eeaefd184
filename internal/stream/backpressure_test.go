package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateops/objstream/internal/domain"
)

// throttledSink accepts every write but reports saturation after each one,
// so the pipeline must wait for an explicit Release before proceeding.
type throttledSink struct {
	*BufferSink

	mu     sync.Mutex
	ready  chan struct{}
	pass   bool
	pushes int
}

func newThrottledSink() *throttledSink {
	return &throttledSink{BufferSink: NewBufferSink()}
}

func (s *throttledSink) Push(p []byte) (bool, error) {
	if _, err := s.BufferSink.Push(p); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes++
	return false, nil
}

func (s *throttledSink) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pass {
		// A release arrived before anyone started waiting.
		s.pass = false
		return closedReady
	}
	if s.ready == nil {
		s.ready = make(chan struct{})
	}
	return s.ready
}

// Release lets exactly one suspended waiter proceed.
func (s *throttledSink) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready != nil {
		close(s.ready)
		s.ready = nil
		return
	}
	s.pass = true
}

func (s *throttledSink) pushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}

// A saturated sink must suspend delivery entirely: no pushes happen until
// the consumer drains, then exactly the next part lands.
func TestStreamHonorsSinkBackpressure(t *testing.T) {
	data := testObject(50)
	f := &fakeFetcher{data: data}
	o, err := New(f, Options{PartSize: 10, Concurrency: 2})
	require.NoError(t, err)

	sink := newThrottledSink()
	require.NoError(t, o.Stream(context.Background(), domain.DownloadRequest{Ref: testRef}, sink))

	// The bootstrap write saturated the sink, so the pipeline is
	// suspended before delivering anything.
	require.Eventually(t, func() bool { return sink.pushCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, sink.pushCount())

	// Each release admits exactly one more part, in order.
	for i := 1; i < 5; i++ {
		sink.Release()
		want := i + 1
		require.Eventually(t, func() bool { return sink.pushCount() == want }, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, want, sink.pushCount())
		assert.Equal(t, data[:want*10], sink.Bytes())
	}

	sink.Release()
	require.NoError(t, sink.Wait(context.Background()))
	assert.Equal(t, data, sink.Bytes())
}

// Cancelling the context while suspended fails the sink instead of
// leaving the pipeline parked forever.
func TestStreamSuspendedPipelineObservesCancellation(t *testing.T) {
	data := testObject(50)
	f := &fakeFetcher{data: data}
	o, err := New(f, Options{PartSize: 10, Concurrency: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sink := newThrottledSink()
	require.NoError(t, o.Stream(ctx, domain.DownloadRequest{Ref: testRef}, sink))

	require.Eventually(t, func() bool { return sink.pushCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	err = sink.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, data[:10], sink.Bytes())
}
