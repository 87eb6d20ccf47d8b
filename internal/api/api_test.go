package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-dubber/internal/progress"
	"video-dubber/models"
	"video-dubber/services"
)

type fakeJobs struct {
	mu        sync.Mutex
	submitted []services.SubmitRequest
	submitErr error
	jobs      map[string]*models.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*models.Job{}}
}

func (f *fakeJobs) Submit(_ context.Context, req services.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return "job-1", nil
}

func (f *fakeJobs) Progress(_ context.Context, id string) (*services.Status, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	return &services.Status{Job: job, Estimate: progress.Times{Elapsed: 90 * time.Second}}, nil
}

func (f *fakeJobs) Result(_ context.Context, id string) (string, error) {
	job, ok := f.jobs[id]
	if !ok {
		return "", models.ErrJobNotFound
	}
	if job.Status != models.StatusCompleted {
		return "", fmt.Errorf("%w: status %s", models.ErrJobNotCompleted, job.Status)
	}
	return job.ResultPath, nil
}

func (f *fakeJobs) Jobs(context.Context) ([]*models.Job, error) {
	out := make([]*models.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func uploadRequest(t *testing.T, contentType string, payload []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="video"; filename="clip.MP4"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process-video", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestServer(t *testing.T, jobs JobService, opts Options) (http.Handler, string) {
	t.Helper()
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(t.TempDir(), "uploads")
	}
	return New(jobs, opts).Handler(), opts.UploadDir
}

func TestProcessVideo_SavesUploadAndSubmits(t *testing.T) {
	jobs := newFakeJobs()
	h, uploadDir := newTestServer(t, jobs, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "video/mp4", []byte("frames"), map[string]string{
		"targetLanguage": "es",
		"provider":       "edge",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.ProcessID)

	require.Len(t, jobs.submitted, 1)
	got := jobs.submitted[0]
	assert.Equal(t, "es", got.TargetLanguage)
	assert.Equal(t, "edge", got.Provider)
	assert.Equal(t, uploadDir, filepath.Dir(got.SourcePath))
	assert.Equal(t, ".mp4", filepath.Ext(got.SourcePath))

	data, err := os.ReadFile(got.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))
}

func TestProcessVideo_DefaultLanguage(t *testing.T) {
	jobs := newFakeJobs()
	h, _ := newTestServer(t, jobs, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "video/webm", []byte("x"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, jobs.submitted, 1)
	assert.Equal(t, "en", jobs.submitted[0].TargetLanguage)
}

func TestProcessVideo_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		mime     string
		payload  []byte
		wantCode int
	}{
		{"not a video", Options{}, "image/png", []byte("png"), http.StatusBadRequest},
		{"too large", Options{MaxUploadBytes: 1024}, "video/mp4", bytes.Repeat([]byte("a"), 4096), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs()
			h, _ := newTestServer(t, jobs, tt.opts)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, tt.mime, tt.payload, nil))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Empty(t, jobs.submitted)
		})
	}
}

func TestProcessVideo_MissingFile(t *testing.T) {
	h, _ := newTestServer(t, newFakeJobs(), Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("targetLanguage", "fr"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/process-video", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no video file")
}

func TestProcessVideo_InvalidRequestRemovesUpload(t *testing.T) {
	jobs := newFakeJobs()
	jobs.submitErr = fmt.Errorf("%w: unsupported language", models.ErrInvalidRequest)
	h, uploadDir := newTestServer(t, jobs, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "video/mp4", []byte("x"), map[string]string{"targetLanguage": "xx"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessVideo_RateLimited(t *testing.T) {
	h, _ := newTestServer(t, newFakeJobs(), Options{UploadRateLimit: 1})

	first := httptest.NewRecorder()
	h.ServeHTTP(first, uploadRequest(t, "video/mp4", []byte("x"), nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, uploadRequest(t, "video/mp4", []byte("x"), nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestProgress(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Minute)
	jobs := newFakeJobs()
	jobs.jobs["done"] = &models.Job{
		ID: "done", Status: models.StatusCompleted, Progress: 100, CurrentStep: 5,
		StartTime: start, EndTime: &end, OriginalText: "hello", TranslatedText: "hola",
	}
	jobs.jobs["running"] = &models.Job{
		ID: "running", Status: models.StatusProcessing, Progress: 33, CurrentStep: 3,
		StartTime: start, IsLongVideo: true, TotalChunks: 3, CurrentChunk: 1,
	}
	h, _ := newTestServer(t, jobs, Options{})

	t.Run("completed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/done", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp progressResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, models.StatusCompleted, resp.Status)
		assert.Equal(t, "/api/download/done", resp.ResultURL)
		assert.Equal(t, int64(120000), resp.DurationMs)
		assert.Equal(t, "hola", resp.TranslatedText)
		assert.Equal(t, "1m 30s", resp.TimeEstimates.Elapsed)
	})

	t.Run("chunked in progress", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/running", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp progressResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.ResultURL)
		assert.True(t, resp.IsLongVideo)
		assert.Equal(t, 3, resp.TotalChunks)
		assert.Equal(t, 1, resp.CurrentChunk)
		assert.Equal(t, 33, resp.Progress)
	})

	t.Run("unknown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDownload(t *testing.T) {
	out := filepath.Join(t.TempDir(), "talk_dubbed_es_1234abcd.mp4")
	require.NoError(t, os.WriteFile(out, []byte("muxed video"), 0644))

	jobs := newFakeJobs()
	jobs.jobs["done"] = &models.Job{ID: "done", Status: models.StatusCompleted, ResultPath: out}
	jobs.jobs["running"] = &models.Job{ID: "running", Status: models.StatusProcessing}
	jobs.jobs["gone"] = &models.Job{ID: "gone", Status: models.StatusCompleted, ResultPath: out + ".missing"}
	h, _ := newTestServer(t, jobs, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download/done", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="talk_dubbed_es_1234abcd.mp4"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "muxed video", rec.Body.String())

	for path, code := range map[string]int{
		"/api/download/running": http.StatusConflict,
		"/api/download/gone":    http.StatusNotFound,
		"/api/download/nope":    http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, rec.Code, path)
	}
}

func TestListEndpoints(t *testing.T) {
	jobs := newFakeJobs()
	jobs.jobs["a"] = &models.Job{ID: "a", Status: models.StatusProcessing}
	h, _ := newTestServer(t, jobs, Options{Providers: []string{"edge", "gtts"}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers", nil))
	assert.JSONEq(t, `["edge","gtts"]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var langs []languageEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &langs))
	assert.NotEmpty(t, langs)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
