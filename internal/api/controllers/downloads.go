package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/crateops/objstream/internal/app"
	"github.com/crateops/objstream/internal/domain"
)

type DownloadsController struct {
	App *app.Context
}

// HandleCreate enqueues a server-side download to local disk.
func (ctrl *DownloadsController) HandleCreate(c *echo.Context) error {
	var body CreateDownloadRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
	}

	req := domain.DownloadRequest{
		Ref:        domain.ObjectRef{Bucket: body.Bucket, Key: body.Key},
		Range:      body.Range,
		PartNumber: body.PartNumber,
	}

	job, err := ctrl.App.Queue.Add(req, ctrl.App.Config.Download.OutDir, body.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidRange) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		ctrl.App.Logger.Error("Failed to enqueue download: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to enqueue download"})
	}

	return c.JSON(http.StatusCreated, newJobView(job))
}

// HandleList returns the full job history, newest first.
func (ctrl *DownloadsController) HandleList(c *echo.Context) error {
	jobs, err := ctrl.App.Store.GetJobs()
	if err != nil {
		ctrl.App.Logger.Error("Failed to list jobs: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list jobs"})
	}

	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, newJobView(j))
	}
	return c.JSON(http.StatusOK, views)
}

// HandleGet returns one job by ID.
func (ctrl *DownloadsController) HandleGet(c *echo.Context) error {
	job, ok := ctrl.App.Queue.Job(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
	}
	return c.JSON(http.StatusOK, newJobView(job))
}

// HandleCancel stops a queued or running job.
func (ctrl *DownloadsController) HandleCancel(c *echo.Context) error {
	if !ctrl.App.Queue.Cancel(c.Param("id")) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found or already finished"})
	}
	return c.NoContent(http.StatusAccepted)
}
