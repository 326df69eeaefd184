// Package engine runs server-side download jobs: one sequential queue,
// each job streaming an object from the store to a local file.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crateops/objstream/internal/app"
	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/stream"
)

// Service executes one job from start to finish.
type Service struct {
	ctx *app.Context
}

func NewService(ctx *app.Context) *Service {
	return &Service{ctx: ctx}
}

// Download streams the job's object into its destination file and blocks
// until the last part landed (or the pipeline failed).
func (s *Service) Download(ctx context.Context, job *domain.Job) error {
	if err := os.MkdirAll(filepath.Dir(job.Dest), 0755); err != nil {
		return fmt.Errorf("failed to create out_dir: %w", err)
	}

	sink, err := stream.NewFileSink(job.Dest)
	if err != nil {
		return err
	}
	sink.OnWrite = func(n int) {
		job.BytesWritten.Add(int64(n))
	}

	start := time.Now()
	s.ctx.Logger.Info("Starting download for %s -> %s", job.Request.Ref, job.Dest)

	if err := s.ctx.Streamer.Stream(ctx, job.Request, sink); err != nil {
		// Bootstrap failed; nothing was written, drop the part file.
		os.Remove(job.Dest + ".part")
		return err
	}
	job.TotalBytes.Store(sink.TotalLength())

	if err := sink.Wait(ctx); err != nil {
		return err
	}

	elapsed := time.Since(start).Truncate(time.Millisecond)
	s.ctx.Logger.Info("Finished %s: %d bytes in %s", job.Request.Ref, sink.BytesWritten(), elapsed)
	return nil
}
