// Package s3 implements the store fetch client on top of the AWS SDK,
// against any S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/stream"
)

// API is the slice of the S3 client the fetcher needs; kept narrow so
// tests can fake it.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher issues one ranged or part-numbered GetObject per call.
type Fetcher struct {
	client API
}

func NewFetcher(client API) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch reads the requested slice of the object fully into memory; part
// sizes bound the allocation. The Content-Range of a ranged response is
// passed through untouched so the orchestrator can extract the total.
func (f *Fetcher) Fetch(ctx context.Context, ref domain.ObjectRef, spec stream.FetchSpec) (*stream.FetchResult, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}
	if spec.Range != "" {
		in.Range = aws.String(spec.Range)
	}
	if spec.PartNumber > 0 {
		in.PartNumber = aws.Int32(spec.PartNumber)
	}

	out, err := f.client.GetObject(ctx, in)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, ref)
		}
		return nil, err
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &stream.FetchResult{
		Body:         body,
		ContentType:  aws.ToString(out.ContentType),
		ContentRange: aws.ToString(out.ContentRange),
	}, nil
}

// isNotFound unwraps the SDK error chain looking for the service codes
// that mean the object (or bucket) does not exist.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}
