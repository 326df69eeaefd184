package domain

import (
	"context"
	"sync/atomic"
	"time"
)

type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusDownloading JobStatus = "downloading"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusCancelled   JobStatus = "cancelled"
)

// Job represents one server-side download of an object to local disk.
// BytesWritten and TotalBytes are atomic because the download goroutine
// updates them while API handlers read; the remaining fields are only
// written under the queue's lock.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`

	Request DownloadRequest `json:"request"`

	// Dest is the local path the object is written to.
	Dest string `json:"dest"`

	BytesWritten atomic.Int64 `json:"-"`
	TotalBytes   atomic.Int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Error     string    `json:"error,omitempty"`

	CancelFunc context.CancelFunc `json:"-"`
}

// Progress returns the bytes written so far; exposed for JSON responses
// since atomic.Int64 does not marshal.
func (j *Job) Progress() int64 {
	return j.BytesWritten.Load()
}

// Total returns the object's total byte count once known, 0 before.
func (j *Job) Total() int64 {
	return j.TotalBytes.Load()
}

// Snapshot returns a copy safe to read after the original moves on. The
// cancel handle stays with the original; callers holding a reference to
// the live job must take the queue's lock before calling this.
func (j *Job) Snapshot() *Job {
	cp := &Job{
		ID:        j.ID,
		Status:    j.Status,
		Request:   j.Request,
		Dest:      j.Dest,
		CreatedAt: j.CreatedAt,
		StartedAt: j.StartedAt,
		Error:     j.Error,
	}
	cp.BytesWritten.Store(j.BytesWritten.Load())
	cp.TotalBytes.Store(j.TotalBytes.Load())
	return cp
}
