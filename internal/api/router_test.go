package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateops/objstream/internal/api/controllers"
	"github.com/crateops/objstream/internal/app"
	"github.com/crateops/objstream/internal/domain"
	"github.com/crateops/objstream/internal/infra/config"
	"github.com/crateops/objstream/internal/infra/logger"
	"github.com/crateops/objstream/internal/ranges"
	"github.com/crateops/objstream/internal/stream"
)

// objectStreamer serves ranged requests from an in-memory object, the
// way the real orchestrator would.
type objectStreamer struct {
	data    []byte
	lastReq domain.DownloadRequest
}

func (f *objectStreamer) Stream(ctx context.Context, req domain.DownloadRequest, sink stream.Sink) error {
	f.lastReq = req
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Ref.Key == "missing.bin" {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, req.Ref)
	}

	body := f.data
	total := int64(len(f.data))
	if req.Range != "" {
		br, err := ranges.Parse(req.Range)
		if err != nil {
			return err
		}
		body = f.data[br.Start : br.Start+br.Length]
		total = br.Length
	}

	sink.Describe("application/octet-stream", total)
	if _, err := sink.Push(body); err != nil {
		return err
	}
	return sink.Close()
}

// stubQueue is an app.Queue backed by a map.
type stubQueue struct {
	jobs    map[string]*domain.Job
	addErr  error
	lastDir string
}

func (q *stubQueue) Add(req domain.DownloadRequest, outDir, filename string) (*domain.Job, error) {
	if q.addErr != nil {
		return nil, q.addErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	q.lastDir = outDir
	job := &domain.Job{ID: "job-123", Request: req, Dest: outDir + "/" + filename, Status: domain.StatusPending}
	q.jobs[job.ID] = job
	return job, nil
}

func (q *stubQueue) Job(id string) (*domain.Job, bool) {
	j, ok := q.jobs[id]
	return j, ok
}

func (q *stubQueue) Cancel(id string) bool {
	_, ok := q.jobs[id]
	delete(q.jobs, id)
	return ok
}

type stubStore struct {
	jobs []*domain.Job
}

func (s *stubStore) SaveJob(*domain.Job) error             { return nil }
func (s *stubStore) GetJob(string) (*domain.Job, error)    { return nil, nil }
func (s *stubStore) GetJobs() ([]*domain.Job, error)       { return s.jobs, nil }
func (s *stubStore) GetActiveJobs() ([]*domain.Job, error) { return nil, nil }
func (s *stubStore) Close() error                          { return nil }

func testServer(t *testing.T, streamer app.Streamer, queue app.Queue, store app.Store) *echo.Echo {
	t.Helper()
	appCtx := app.NewContext(&config.Config{
		Download: config.DownloadConfig{OutDir: t.TempDir()},
	}, logger.Nop())
	appCtx.Streamer = streamer
	appCtx.Queue = queue
	appCtx.Store = store

	e := echo.New()
	RegisterRoutes(e, appCtx)
	return e
}

func doRequest(e *echo.Echo, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestObjectGetWholeObject(t *testing.T) {
	streamer := &objectStreamer{data: []byte("0123456789abcdef")}
	e := testServer(t, streamer, nil, nil)

	rec := doRequest(e, http.MethodGet, "/v1/objects/media/videos/clip.mp4", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789abcdef", rec.Body.String())
	assert.Equal(t, "16", rec.Header().Get(echo.HeaderContentLength))
	assert.Equal(t, "application/octet-stream", rec.Header().Get(echo.HeaderContentType))

	// The wildcard segment keeps its slashes.
	assert.Equal(t, "media", streamer.lastReq.Ref.Bucket)
	assert.Equal(t, "videos/clip.mp4", streamer.lastReq.Ref.Key)
}

func TestObjectGetRange(t *testing.T) {
	streamer := &objectStreamer{data: []byte("0123456789abcdef")}
	e := testServer(t, streamer, nil, nil)

	rec := doRequest(e, http.MethodGet, "/v1/objects/media/clip.mp4", "",
		map[string]string{"Range": "bytes=4-12"})

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "456789ab", rec.Body.String())
	// The inclusive end mirrors the delivered span, so the header and
	// Content-Length always agree on the byte count.
	assert.Equal(t, "bytes 4-11/*", rec.Header().Get("Content-Range"))
	assert.Equal(t, "8", rec.Header().Get(echo.HeaderContentLength))
}

func TestObjectGetErrors(t *testing.T) {
	streamer := &objectStreamer{data: []byte("0123456789")}
	e := testServer(t, streamer, nil, nil)

	rec := doRequest(e, http.MethodGet, "/v1/objects/media/missing.bin", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/objects/media/clip.mp4", "",
		map[string]string{"Range": "bytes=9-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/objects/media/clip.mp4?partNumber=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/objects/media/clip.mp4?partNumber=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadCreate(t *testing.T) {
	queue := &stubQueue{jobs: make(map[string]*domain.Job)}
	e := testServer(t, nil, queue, nil)

	rec := doRequest(e, http.MethodPost, "/v1/downloads",
		`{"bucket":"archive","key":"backups/a.tar","filename":"a.tar"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var view controllers.JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "job-123", view.ID)
	assert.Equal(t, "archive", view.Bucket)
	assert.Equal(t, domain.StatusPending, view.Status)

	// Invalid body and invalid request both map to 400.
	rec = doRequest(e, http.MethodPost, "/v1/downloads", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v1/downloads", `{"bucket":"archive"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadGetAndCancel(t *testing.T) {
	queue := &stubQueue{jobs: map[string]*domain.Job{
		"job-9": {ID: "job-9", Status: domain.StatusDownloading},
	}}
	e := testServer(t, nil, queue, nil)

	rec := doRequest(e, http.MethodGet, "/v1/downloads/job-9", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/downloads/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/v1/downloads/job-9", "", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/v1/downloads/job-9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadList(t *testing.T) {
	store := &stubStore{jobs: []*domain.Job{
		{ID: "b", Status: domain.StatusCompleted},
		{ID: "a", Status: domain.StatusFailed, Error: "upstream fetch failed"},
	}}
	e := testServer(t, nil, nil, store)

	rec := doRequest(e, http.MethodGet, "/v1/downloads", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []controllers.JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "b", views[0].ID)
	assert.Equal(t, "upstream fetch failed", views[1].Error)
}
