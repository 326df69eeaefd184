package controllers

import (
	"time"

	"github.com/crateops/objstream/internal/domain"
)

// CreateDownloadRequest is the POST /v1/downloads body.
type CreateDownloadRequest struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Range      string `json:"range,omitempty"`
	PartNumber int32  `json:"part_number,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// JobView is the JSON shape of a job; domain.Job carries an atomic
// counter that does not marshal directly.
type JobView struct {
	ID           string           `json:"id"`
	Status       domain.JobStatus `json:"status"`
	Bucket       string           `json:"bucket"`
	Key          string           `json:"key"`
	Range        string           `json:"range,omitempty"`
	PartNumber   int32            `json:"part_number,omitempty"`
	Dest         string           `json:"dest"`
	TotalBytes   int64            `json:"total_bytes"`
	BytesWritten int64            `json:"bytes_written"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func newJobView(j *domain.Job) JobView {
	return JobView{
		ID:           j.ID,
		Status:       j.Status,
		Bucket:       j.Request.Ref.Bucket,
		Key:          j.Request.Ref.Key,
		Range:        j.Request.Range,
		PartNumber:   j.Request.PartNumber,
		Dest:         j.Dest,
		TotalBytes:   j.Total(),
		BytesWritten: j.Progress(),
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
