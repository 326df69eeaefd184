package domain

import "fmt"

// ObjectRef identifies a single object in a store.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (r ObjectRef) String() string {
	return r.Bucket + "/" + r.Key
}

// DownloadRequest describes what to pull from the store.
// Range and PartNumber are mutually exclusive: a request may ask for the
// whole object, a byte sub-range, or one storage-assigned multipart part,
// but never a range of a part.
type DownloadRequest struct {
	Ref ObjectRef `json:"ref"`

	// Range is an optional "bytes=<start>-<end>" string.
	Range string `json:"range,omitempty"`

	// PartNumber is an optional storage-assigned part (1-based, 0 = unset).
	PartNumber int32 `json:"part_number,omitempty"`
}

// Validate checks the request before any fetch is issued.
func (r DownloadRequest) Validate() error {
	if r.Ref.Bucket == "" || r.Ref.Key == "" {
		return fmt.Errorf("%w: bucket and key are required", ErrInvalidInput)
	}
	if r.Range != "" && r.PartNumber > 0 {
		return fmt.Errorf("%w: range and part number are mutually exclusive", ErrInvalidInput)
	}
	if r.PartNumber < 0 {
		return fmt.Errorf("%w: part number must be positive", ErrInvalidInput)
	}
	return nil
}
