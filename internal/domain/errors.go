package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidRange indicates a client range string that does not match
// the "bytes=<start>-<end>" wire format.
var ErrInvalidRange = errors.New("invalid byte range")

// ErrInvalidInput indicates a malformed download request
// (missing bucket/key, or both a range and a part number set).
var ErrInvalidInput = errors.New("invalid download request")

// ErrConfiguration indicates invalid orchestrator or service options.
var ErrConfiguration = errors.New("invalid configuration")

// ErrObjectNotFound indicates the store reported the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// FetchError wraps a failed store fetch with the object and the
// range or part that was requested.
type FetchError struct {
	Bucket string
	Key    string
	Spec   string // "bytes=0-5242879" or "part=3"
	Err    error
}

func (e *FetchError) Error() string {
	if e.Spec == "" {
		return fmt.Sprintf("fetch %s/%s: %v", e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("fetch %s/%s (%s): %v", e.Bucket, e.Key, e.Spec, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
