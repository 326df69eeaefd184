package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crateops/objstream/internal/domain"
)

// jobDBO maps to the jobs table.
type jobDBO struct {
	ID           string
	Bucket       string
	Key          string
	ByteRange    string
	PartNumber   int32
	Dest         string
	Status       string
	TotalBytes   int64
	BytesWritten int64
	Error        string
	CreatedAt    time.Time
	StartedAt    sql.NullTime
}

func (d *jobDBO) toDomain() *domain.Job {
	job := &domain.Job{
		ID: d.ID,
		Request: domain.DownloadRequest{
			Ref:        domain.ObjectRef{Bucket: d.Bucket, Key: d.Key},
			Range:      d.ByteRange,
			PartNumber: d.PartNumber,
		},
		Dest:      d.Dest,
		Status:    domain.JobStatus(d.Status),
		Error:     d.Error,
		CreatedAt: d.CreatedAt,
		StartedAt: d.StartedAt.Time,
	}
	job.TotalBytes.Store(d.TotalBytes)
	job.BytesWritten.Store(d.BytesWritten)
	return job
}

const jobColumns = `id, bucket, obj_key, byte_range, part_number, dest, status, total_bytes, bytes_written, error, created_at, started_at`

// SaveJob inserts or updates one job row.
func (s *HistoryStore) SaveJob(job *domain.Job) error {
	query := s.rebind(`
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			total_bytes = excluded.total_bytes,
			bytes_written = excluded.bytes_written,
			error = excluded.error,
			started_at = excluded.started_at`)

	var startedAt sql.NullTime
	if !job.StartedAt.IsZero() {
		startedAt = sql.NullTime{Time: job.StartedAt, Valid: true}
	}

	_, err := s.db.Exec(query,
		job.ID,
		job.Request.Ref.Bucket,
		job.Request.Ref.Key,
		job.Request.Range,
		job.Request.PartNumber,
		job.Dest,
		string(job.Status),
		job.TotalBytes.Load(),
		job.BytesWritten.Load(),
		job.Error,
		job.CreatedAt,
		startedAt,
	)
	return err
}

// GetJob fetches one job by ID. Returns (nil, nil) when not found.
func (s *HistoryStore) GetJob(id string) (*domain.Job, error) {
	query := s.rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE id = ? LIMIT 1`)

	var d jobDBO
	err := s.db.QueryRow(query, id).Scan(
		&d.ID, &d.Bucket, &d.Key, &d.ByteRange, &d.PartNumber, &d.Dest,
		&d.Status, &d.TotalBytes, &d.BytesWritten, &d.Error, &d.CreatedAt, &d.StartedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch job: %w", err)
	}
	return d.toDomain(), nil
}

// GetJobs returns every job, newest first. Job IDs are ksuids, so sorting
// by ID is chronological.
func (s *HistoryStore) GetJobs() ([]*domain.Job, error) {
	return s.queryJobs(`SELECT ` + jobColumns + ` FROM jobs ORDER BY id DESC`)
}

// GetActiveJobs returns jobs that still need work, oldest first.
func (s *HistoryStore) GetActiveJobs() ([]*domain.Job, error) {
	return s.queryJobs(`SELECT ` + jobColumns + ` FROM jobs
		WHERE status NOT IN ('completed', 'failed', 'cancelled')
		ORDER BY id ASC`)
}

func (s *HistoryStore) queryJobs(query string) ([]*domain.Job, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		var d jobDBO
		err := rows.Scan(
			&d.ID, &d.Bucket, &d.Key, &d.ByteRange, &d.PartNumber, &d.Dest,
			&d.Status, &d.TotalBytes, &d.BytesWritten, &d.Error, &d.CreatedAt, &d.StartedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, d.toDomain())
	}
	return jobs, rows.Err()
}
