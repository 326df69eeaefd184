package app

import (
	"context"

	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/infra/config"
	"github.com/crateops/objstream/internal/infra/logger"
	"github.com/crateops/objstream/internal/stream"
)

// Streamer starts one object download into a sink. Implemented by the
// stream orchestrator; declared here so API controllers don't depend on
// the concrete type.
type Streamer interface {
	Stream(ctx context.Context, req domain.DownloadRequest, sink stream.Sink) error
}

// Downloader runs one job to completion (object to local file).
type Downloader interface {
	Download(ctx context.Context, job *domain.Job) error
}

// Queue accepts and tracks server-side download jobs.
type Queue interface {
	Add(req domain.DownloadRequest, outDir, filename string) (*domain.Job, error)
	Job(id string) (*domain.Job, bool)
	Cancel(id string) bool
}

// Store persists jobs across restarts.
type Store interface {
	SaveJob(job *domain.Job) error
	GetJob(id string) (*domain.Job, error)
	GetJobs() ([]*domain.Job, error)
	GetActiveJobs() ([]*domain.Job, error)
	Close() error
}

// Context holds the core environment and shared resources for objstream.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Streamer   Streamer
	Downloader Downloader
	Queue      Queue
	Store      Store
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
