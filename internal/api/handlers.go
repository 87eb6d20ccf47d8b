package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"video-dubber/internal/logger"
	"video-dubber/internal/progress"
	"video-dubber/internal/text"
	"video-dubber/models"
	"video-dubber/services"
)

// multipart parts above this size spill to temporary files.
const formMemory = 32 << 20

type errorBody struct {
	Error string `json:"error"`
}

type submitResponse struct {
	ProcessID string `json:"processId"`
}

type progressResponse struct {
	ID             string             `json:"id"`
	Status         models.JobStatus   `json:"status"`
	Progress       int                `json:"progress"`
	CurrentStep    int                `json:"currentStep"`
	Message        string             `json:"message,omitempty"`
	Error          string             `json:"error,omitempty"`
	ResultURL      string             `json:"resultUrl,omitempty"`
	OriginalText   string             `json:"originalText,omitempty"`
	TranslatedText string             `json:"translatedText,omitempty"`
	DurationMs     int64              `json:"durationMs,omitempty"`
	IsLongVideo    bool               `json:"isLongVideo"`
	TotalChunks    int                `json:"totalChunks,omitempty"`
	CurrentChunk   int                `json:"currentChunk"`
	TimeEstimates  progress.Formatted `json:"timeEstimates"`
}

type languageEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error kinds to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		code = http.StatusBadRequest
	case errors.Is(err, models.ErrJobNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrJobNotCompleted):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str(logger.FieldPath, r.URL.Path).Msg("request failed")
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	tooLarge := func() {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorBody{Error: fmt.Sprintf("upload exceeds the %d byte limit", s.opts.MaxUploadBytes)})
	}
	if r.ContentLength > s.opts.MaxUploadBytes {
		tooLarge()
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge()
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no video file uploaded"})
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "only video files are allowed"})
		return
	}

	srcPath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	lang := r.FormValue("targetLanguage")
	if lang == "" {
		lang = s.opts.DefaultLanguage
	}
	id, err := s.jobs.Submit(r.Context(), services.SubmitRequest{
		SourcePath:     srcPath,
		TargetLanguage: lang,
		Provider:       r.FormValue("provider"),
		Voice:          r.FormValue("voice"),
	})
	if err != nil {
		_ = os.Remove(srcPath)
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ProcessID: id})
}

// saveUpload stores the upload under a unique name that keeps the original extension.
func (s *Server) saveUpload(src io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	dst := filepath.Join(s.opts.UploadDir, uuid.NewString()+ext)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dst, nil
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.jobs.Progress(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	job := st.Job
	resp := progressResponse{
		ID:             job.ID,
		Status:         job.Status,
		Progress:       job.Progress,
		CurrentStep:    job.CurrentStep,
		Message:        job.Message,
		Error:          job.Error,
		OriginalText:   job.OriginalText,
		TranslatedText: job.TranslatedText,
		IsLongVideo:    job.IsLongVideo,
		TotalChunks:    job.TotalChunks,
		CurrentChunk:   job.CurrentChunk,
		TimeEstimates:  st.Estimate.Format(),
	}
	if job.Status == models.StatusCompleted {
		resp.ResultURL = "/api/download/" + job.ID
		resp.DurationMs = job.Duration().Milliseconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path, err := s.jobs.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "file not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.Jobs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	codes := text.GetTargetLanguageCodes()
	out := make([]languageEntry, 0, len(codes))
	for _, c := range codes {
		out = append(out, languageEntry{Code: c, Name: text.GetLanguageName(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	providers := s.opts.Providers
	if providers == nil {
		providers = []string{}
	}
	writeJSON(w, http.StatusOK, providers)
}
