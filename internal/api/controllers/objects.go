package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/crateops/objstream/internal/app"
	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/ranges"
	"github.com/crateops/objstream/internal/stream"
)

type ObjectsController struct {
	App *app.Context
}

// HandleGet streams one object (or a byte range, or one multipart part)
// from the store to the HTTP response. The response body starts flowing
// while later parts are still being fetched.
func (ctrl *ObjectsController) HandleGet(c *echo.Context) error {
	req := domain.DownloadRequest{
		Ref: domain.ObjectRef{
			Bucket: c.Param("bucket"),
			Key:    c.Param("*"),
		},
		Range: c.Request().Header.Get("Range"),
	}

	if pn := c.QueryParam("partNumber"); pn != "" {
		n, err := strconv.ParseInt(pn, 10, 32)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "partNumber must be a positive integer"})
		}
		req.PartNumber = int32(n)
	}

	sink := stream.NewPipeSink(0)

	if err := ctrl.App.Streamer.Stream(c.Request().Context(), req, sink); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRange):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrObjectNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		default:
			ctrl.App.Logger.Error("Stream failed for %s: %v", req.Ref, err)
			return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream fetch failed"})
		}
	}

	contentType := sink.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, contentType)

	status := http.StatusOK
	switch {
	case req.Range != "":
		// Already validated by the orchestrator. The delivered span is
		// br.Length bytes, so the header's inclusive end is derived from
		// it rather than from the raw range string.
		br, _ := ranges.Parse(req.Range)
		last := br.Start + br.Length - 1
		if last < br.Start {
			last = br.Start
		}
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/*", br.Start, last))
		h.Set(echo.HeaderContentLength, strconv.FormatInt(sink.TotalLength(), 10))
		status = http.StatusPartialContent
	case req.PartNumber > 0:
		// One part, length unknown up front; let chunked encoding handle it.
	default:
		h.Set(echo.HeaderContentLength, strconv.FormatInt(sink.TotalLength(), 10))
	}

	c.Response().WriteHeader(status)
	// A pipeline failure mid-stream surfaces here as a read error; the
	// response is already committed, so all we can do is cut the body
	// short and let the client notice the truncation.
	if _, err := io.Copy(c.Response(), sink); err != nil {
		ctrl.App.Logger.Error("Stream aborted for %s: %v", req.Ref, err)
	}
	return nil
}
