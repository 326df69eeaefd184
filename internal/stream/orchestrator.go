package stream

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/infra/logger"
	"github.com/crateops/objstream/internal/ranges"
)

const (
	// DefaultPartSize is how much one fetch asks for when the caller
	// does not override it.
	DefaultPartSize = 5 * 1024 * 1024

	// DefaultConcurrency is the default fetch window size.
	DefaultConcurrency = 1
)

// Options tune the orchestrator. Zero values select the defaults;
// negative values are rejected.
type Options struct {
	PartSize    int64
	Concurrency int
	Logger      *logger.Logger
}

// Orchestrator resolves a download request into a bootstrap fetch plus,
// for large objects, a background multi-part pipeline that delivers bytes
// to the sink strictly in ascending offset order.
type Orchestrator struct {
	fetcher     Fetcher
	partSize    int64
	concurrency int
	log         *logger.Logger
}

// New validates the options and builds an Orchestrator.
func New(fetcher Fetcher, opts Options) (*Orchestrator, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is required", domain.ErrConfiguration)
	}
	if opts.PartSize < 0 {
		return nil, fmt.Errorf("%w: part size must be positive", domain.ErrConfiguration)
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("%w: concurrency must be positive", domain.ErrConfiguration)
	}

	if opts.PartSize == 0 {
		opts.PartSize = DefaultPartSize
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Orchestrator{
		fetcher:     fetcher,
		partSize:    opts.PartSize,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}, nil
}

// Stream performs the bootstrap fetch for req, sets the sink's metadata,
// writes the first chunk, and — when more data remains and no explicit
// part was requested — launches the part pipeline in the background.
// It returns right after the first write, so the caller can start
// consuming the sink while later parts are still in flight.
//
// On any error before that first write the sink is left untouched and
// never receives data; pipeline failures after Stream has returned are
// reported through the sink's terminal error state instead.
func (o *Orchestrator) Stream(ctx context.Context, req domain.DownloadRequest, sink Sink) error {
	if err := req.Validate(); err != nil {
		return err
	}

	var (
		spec        FetchSpec
		clientRange ranges.ByteRange
		hasRange    bool
	)

	switch {
	case req.Range != "" && req.PartNumber == 0:
		br, err := ranges.Parse(req.Range)
		if err != nil {
			return err
		}
		clientRange, hasRange = br, true
		first := ranges.Compute(0, br.Length, o.partSize, br.Start)
		spec = FetchSpec{Range: first.Header()}

	case req.Range == "" && req.PartNumber == 0:
		spec = FetchSpec{Range: ranges.PartRange{Start: 0, End: o.partSize - 1}.Header()}

	default:
		// Explicit part: forwarded verbatim, single fetch, no pipeline.
		spec = FetchSpec{PartNumber: req.PartNumber}
	}

	res, err := o.fetcher.Fetch(ctx, req.Ref, spec)
	if err != nil {
		return &domain.FetchError{Bucket: req.Ref.Bucket, Key: req.Ref.Key, Spec: spec.String(), Err: err}
	}

	// A client range already pins the logical content length; otherwise
	// it comes from the bootstrap response's range metadata.
	totalLength := clientRange.Length
	if !hasRange {
		totalLength = declaredTotal(res)
	}

	sink.Describe(res.ContentType, totalLength)

	ok, err := sink.Push(res.Body)
	if err != nil {
		return fmt.Errorf("bootstrap write: %w", err)
	}

	if totalLength <= o.partSize || req.PartNumber > 0 {
		return sink.Close()
	}

	p := &pipeline{
		fetcher:     o.fetcher,
		ref:         req.Ref,
		sink:        sink,
		partSize:    o.partSize,
		totalLength: totalLength,
		offsetBias:  clientRange.Start,
		concurrency: o.concurrency,
		log:         o.log,
	}
	go p.run(ctx, 1, !ok)

	return nil
}

// declaredTotal extracts the object's total length from the bootstrap
// response. Range metadata has the wire form "bytes=<start>-<end>/<total>";
// a whole-object response carries no range metadata, in which case the
// body is the object.
func declaredTotal(res *FetchResult) int64 {
	_, totalPart, found := strings.Cut(res.ContentRange, "/")
	if !found {
		return int64(len(res.Body))
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return int64(len(res.Body))
	}
	return total
}
