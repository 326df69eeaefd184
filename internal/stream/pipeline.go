package stream

import (
	"context"

	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/infra/logger"
	"github.com/crateops/objstream/internal/ranges"
)

// fetchHandle is one outstanding fetch. Its result is cached in the
// buffered channel until the pipeline is ready to consume it, so a part
// that finishes early just sits there while earlier parts drain.
type fetchHandle struct {
	spec FetchSpec
	done chan fetchOutcome
}

type fetchOutcome struct {
	res *FetchResult
	err error
}

// pipeline is the sliding-window scheduler for parts after the bootstrap.
// One pipeline belongs to exactly one Stream call; the fill/drain/deliver
// loop is strictly sequential even though fetches overlap, so none of its
// state needs locking.
type pipeline struct {
	fetcher     Fetcher
	ref         domain.ObjectRef
	sink        Sink
	partSize    int64
	totalLength int64
	offsetBias  int64
	concurrency int
	log         *logger.Logger

	next      int64
	queue     []*fetchHandle
	delivered int64
}

// run delivers parts [startPart, totalParts) to the sink in ascending
// order, keeping up to concurrency fetches in flight. waitFirst indicates
// the bootstrap write already saturated the sink, so the pipeline waits
// for it to drain before issuing anything.
func (p *pipeline) run(ctx context.Context, startPart int64, waitFirst bool) {
	totalParts := (p.totalLength + p.partSize - 1) / p.partSize
	p.next = startPart

	if waitFirst {
		if !p.awaitReady(ctx) {
			return
		}
	}

	for p.delivered < totalParts-startPart {
		// Fill: keep the window saturated.
		for len(p.queue) < p.concurrency && p.next < totalParts {
			pr := ranges.Compute(p.next, p.totalLength, p.partSize, p.offsetBias)
			p.queue = append(p.queue, p.issue(ctx, pr))
			p.next++
		}

		// Drain the head. FIFO is what guarantees byte order: a
		// later part that finished first stays cached in its handle
		// until every part before it has been delivered.
		head := p.queue[0]
		p.queue = p.queue[1:]

		out := <-head.done
		if out.err != nil {
			p.log.Error("part fetch failed for %s (%s): %v", p.ref, head.spec, out.err)
			p.sink.Fail(&domain.FetchError{
				Bucket: p.ref.Bucket,
				Key:    p.ref.Key,
				Spec:   head.spec.String(),
				Err:    out.err,
			})
			return
		}

		ok, err := p.sink.Push(out.res.Body)
		if err != nil {
			// The consumer is gone; in-flight fetches drain on
			// their own and their results are dropped.
			p.log.Debug("sink rejected part for %s: %v", p.ref, err)
			return
		}
		p.delivered++

		if !ok {
			if !p.awaitReady(ctx) {
				return
			}
		}
	}

	p.sink.Close()
}

// issue starts one fetch and returns its handle. The channel is buffered
// so the fetch goroutine never blocks on delivery.
func (p *pipeline) issue(ctx context.Context, pr ranges.PartRange) *fetchHandle {
	h := &fetchHandle{
		spec: FetchSpec{Range: pr.Header()},
		done: make(chan fetchOutcome, 1),
	}
	go func() {
		res, err := p.fetcher.Fetch(ctx, p.ref, h.spec)
		h.done <- fetchOutcome{res: res, err: err}
	}()
	return h
}

// awaitReady suspends the loop until the sink drains. No new fetches are
// issued while suspended; fetches already in the queue keep running.
func (p *pipeline) awaitReady(ctx context.Context) bool {
	select {
	case <-p.sink.Ready():
		return true
	case <-ctx.Done():
		p.sink.Fail(ctx.Err())
		return false
	}
}
