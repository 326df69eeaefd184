// Package stream contains the download core: the sink contract, the
// fetch client contract, and the orchestrator that splits an object into
// parts and delivers them to a sink in order.
package stream

import (
	"context"
	"errors"
	"strconv"

	"github.com/crateops/objstream/internal/domain"
)

// ErrSinkClosed is returned by Push after the sink reached a terminal state.
var ErrSinkClosed = errors.New("sink is closed")

// Sink is a backpressure-aware byte destination. Metadata is set exactly
// once, before or with the first write. The producer contract mirrors a
// writable stream: Push always accepts the chunk (unless the sink is
// terminal) but returns ok=false when the sink is saturated, in which case
// the producer must wait on Ready before pushing again.
type Sink interface {
	// Describe sets the content type and total length. Only the first
	// call has any effect.
	Describe(contentType string, totalLength int64)

	// Push appends p to the sink. ok=false signals backpressure: the
	// chunk was taken, but the producer must wait for Ready before the
	// next Push. A non-nil error means the sink is terminal and the
	// chunk was dropped.
	Push(p []byte) (ok bool, err error)

	// Ready returns a channel that is closed once the sink can accept
	// more data. If the sink is not saturated the channel is already
	// closed.
	Ready() <-chan struct{}

	// Fail moves the sink to a terminal error state. Bytes already
	// delivered are not rolled back; consumers must treat the stream
	// as incomplete.
	Fail(err error)

	// Close signals a normal end of stream.
	Close() error
}

// FetchSpec selects what one fetch asks the store for: a byte range, a
// storage-assigned part, or (both zero) the whole object.
type FetchSpec struct {
	Range      string
	PartNumber int32
}

func (s FetchSpec) String() string {
	switch {
	case s.Range != "":
		return s.Range
	case s.PartNumber > 0:
		return "part=" + strconv.Itoa(int(s.PartNumber))
	default:
		return "full"
	}
}

// FetchResult is the store's answer to one fetch. ContentRange, when
// present, has the wire form "bytes=<start>-<end>/<total>".
type FetchResult struct {
	Body         []byte
	ContentType  string
	ContentRange string
}

// Fetcher issues one range/part request against the object store.
type Fetcher interface {
	Fetch(ctx context.Context, ref domain.ObjectRef, spec FetchSpec) (*FetchResult, error)
}

// closedReady is handed out by sinks that can always accept data.
var closedReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
