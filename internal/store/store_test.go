package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateops/objstream/internal/domain"
)

func testStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testJob(status domain.JobStatus) *domain.Job {
	job := &domain.Job{
		ID: ksuid.New().String(),
		Request: domain.DownloadRequest{
			Ref:   domain.ObjectRef{Bucket: "archive", Key: "backups/2026-08.tar"},
			Range: "bytes=0-1023",
		},
		Dest:      "/tmp/2026-08.tar",
		Status:    status,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	return job
}

func TestSaveAndGetJob(t *testing.T) {
	s := testStore(t)

	job := testJob(domain.StatusPending)
	job.TotalBytes.Store(1024)
	job.BytesWritten.Store(512)
	require.NoError(t, s.SaveJob(job))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "archive", got.Request.Ref.Bucket)
	assert.Equal(t, "backups/2026-08.tar", got.Request.Ref.Key)
	assert.Equal(t, "bytes=0-1023", got.Request.Range)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, int64(1024), got.Total())
	assert.Equal(t, int64(512), got.Progress())
	assert.True(t, got.StartedAt.IsZero())
}

func TestSaveJobUpdatesInPlace(t *testing.T) {
	s := testStore(t)

	job := testJob(domain.StatusPending)
	require.NoError(t, s.SaveJob(job))

	job.Status = domain.StatusCompleted
	job.TotalBytes.Store(2048)
	job.BytesWritten.Store(2048)
	job.StartedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SaveJob(job))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, int64(2048), got.Total())
	assert.False(t, got.StartedAt.IsZero())

	all, err := s.GetJobs()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetJobMissing(t *testing.T) {
	s := testStore(t)

	got, err := s.GetJob("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetJobsNewestFirst(t *testing.T) {
	s := testStore(t)

	// ksuids only order across seconds; pin the IDs so the test is
	// deterministic.
	first := testJob(domain.StatusCompleted)
	first.ID = "0001"
	second := testJob(domain.StatusPending)
	second.ID = "0002"
	require.NoError(t, s.SaveJob(first))
	require.NoError(t, s.SaveJob(second))

	all, err := s.GetJobs()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestGetActiveJobsSkipsTerminalStates(t *testing.T) {
	s := testStore(t)

	pending := testJob(domain.StatusPending)
	pending.ID = "0001"
	running := testJob(domain.StatusDownloading)
	running.ID = "0002"
	require.NoError(t, s.SaveJob(pending))
	require.NoError(t, s.SaveJob(running))
	for _, status := range []domain.JobStatus{domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled} {
		require.NoError(t, s.SaveJob(testJob(status)))
	}

	active, err := s.GetActiveJobs()
	require.NoError(t, err)
	require.Len(t, active, 2)
	// Oldest first, so restarts resume in submission order.
	assert.Equal(t, pending.ID, active[0].ID)
	assert.Equal(t, running.ID, active[1].ID)
}

func TestRebind(t *testing.T) {
	sqlite := &HistoryStore{driver: DriverSQLite}
	assert.Equal(t, "SELECT ? WHERE a = ?", sqlite.rebind("SELECT ? WHERE a = ?"))

	pg := &HistoryStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT $1 WHERE a = $2", pg.rebind("SELECT ? WHERE a = ?"))
}
