package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/crateops/objstream/internal/app"
	"github.com/crateops/objstream/internal/domain"
)

// QueueManager owns the job queue. Jobs run one at a time; the queue and
// every status change are persisted so a restart picks up where it left
// off (pending jobs restart from scratch, there is no partial resume).
type QueueManager struct {
	mu         sync.RWMutex
	downloader app.Downloader
	store      app.Store
	queue      []*domain.Job
	activeJob  *domain.Job

	newJobChan chan struct{}
}

// NewQueueManager initializes a QueueManager. If loadExisting is true,
// unfinished jobs are loaded back from the store.
func NewQueueManager(appCtx *app.Context, loadExisting bool) *QueueManager {
	var active []*domain.Job

	if loadExisting {
		var err error
		active, err = appCtx.Store.GetActiveJobs()
		if err != nil {
			appCtx.Logger.Warn("Could not load pending jobs: %v", err)
			active = nil
		}
	}

	return &QueueManager{
		downloader: appCtx.Downloader,
		store:      appCtx.Store,
		queue:      active,
		newJobChan: make(chan struct{}, 1),
	}
}

// Add creates a job for the request, persists it, and notifies the run loop.
func (m *QueueManager) Add(req domain.DownloadRequest, outDir, filename string) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if filename == "" {
		filename = filepath.Base(req.Ref.Key)
	}

	job := &domain.Job{
		ID:        ksuid.New().String(),
		Request:   req,
		Dest:      filepath.Join(outDir, filename),
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
	}

	if err := m.store.SaveJob(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	m.mu.Lock()
	m.queue = append(m.queue, job)
	snap := job.Snapshot()
	m.mu.Unlock()

	// Signal the Start() loop that there is work to do.
	select {
	case m.newJobChan <- struct{}{}:
	default:
	}

	return snap, nil
}

// Start runs the queue until ctx is cancelled.
func (m *QueueManager) Start(ctx context.Context) {
	for {
		next, jobCtx, cancel := m.pickup(ctx)
		if next == nil {
			select {
			case <-m.newJobChan:
				continue
			case <-ctx.Done():
				return
			}
		}

		err := m.downloader.Download(jobCtx, next)
		m.finalizeJob(next, err)
		cancel()
	}
}

// pickup selects the next runnable job and marks it downloading, all under
// one lock so a concurrent Cancel cannot finalize the job between
// selection and dispatch.
func (m *QueueManager) pickup(ctx context.Context) (*domain.Job, context.Context, context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.queue {
		if job.Status != domain.StatusPending && job.Status != domain.StatusDownloading {
			continue
		}

		jobCtx, cancel := context.WithCancel(ctx)
		m.activeJob = job
		job.CancelFunc = cancel
		job.Status = domain.StatusDownloading
		job.StartedAt = time.Now()
		_ = m.store.SaveJob(job)
		return job, jobCtx, cancel
	}
	return nil, nil, nil
}

// ActiveJob exposes a snapshot of what's currently running.
func (m *QueueManager) ActiveJob() *domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeJob == nil {
		return nil
	}
	return m.activeJob.Snapshot()
}

// Job searches the live queue for an ID, falling back to the store.
// Live jobs are returned as snapshots; the run loop keeps mutating the
// originals under the queue lock.
func (m *QueueManager) Job(id string) (*domain.Job, bool) {
	m.mu.RLock()
	for _, job := range m.queue {
		if job.ID == id {
			snap := job.Snapshot()
			m.mu.RUnlock()
			return snap, true
		}
	}
	m.mu.RUnlock()

	job, err := m.store.GetJob(id)
	if err == nil && job != nil {
		return job, true
	}
	return nil, false
}

// Cancel stops a queued or running job. Returns false when the job is
// unknown or already finished.
func (m *QueueManager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.queue {
		if job.ID != id {
			continue
		}
		if job.Status == domain.StatusCompleted || job.Status == domain.StatusFailed {
			return false
		}
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
		if job.Status == domain.StatusPending {
			// Never started; finalize here since the run loop won't.
			job.Status = domain.StatusCancelled
			_ = m.store.SaveJob(job)
			m.removeFromLiveQueue(job.ID)
		}
		return true
	}
	return false
}

func (m *QueueManager) finalizeJob(job *domain.Job, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			job.Status = domain.StatusCancelled
			job.Error = "cancelled by user"
		} else {
			job.Status = domain.StatusFailed
			job.Error = err.Error()
		}
	} else {
		job.Status = domain.StatusCompleted
	}

	_ = m.store.SaveJob(job)

	m.activeJob = nil
	m.removeFromLiveQueue(job.ID)
}

// removeFromLiveQueue keeps the active slice small by removing finished jobs.
func (m *QueueManager) removeFromLiveQueue(id string) {
	for i, job := range m.queue {
		if job.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
}
