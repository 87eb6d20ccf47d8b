// Package api serves the upload, progress and download endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/logger"
	"video-dubber/models"
	"video-dubber/services"
)

// JobService is the part of services.Dubber the handlers use.
type JobService interface {
	Submit(ctx context.Context, req services.SubmitRequest) (string, error)
	Progress(ctx context.Context, id string) (*services.Status, error)
	Result(ctx context.Context, id string) (string, error)
	Jobs(ctx context.Context) ([]*models.Job, error)
}

// Options configures the HTTP surface.
type Options struct {
	UploadDir       string
	MaxUploadBytes  int64
	UploadRateLimit int // uploads per minute per IP, 0 disables
	DefaultLanguage string
	Providers       []string // listed by GET /api/providers
}

// Server routes HTTP requests to a JobService.
type Server struct {
	jobs JobService
	opts Options
	log  zerolog.Logger
}

func New(jobs JobService, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = config.DefaultTargetLang
	}
	return &Server{jobs: jobs, opts: opts, log: logger.WithComponent("api")}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.opts.UploadRateLimit > 0 {
				r.Use(rateLimit(s.opts.UploadRateLimit, time.Minute))
			}
			r.Post("/process-video", s.handleProcessVideo)
		})
		r.Get("/progress/{id}", s.handleProgress)
		r.Get("/download/{id}", s.handleDownload)
		r.Get("/jobs", s.handleJobs)
		r.Get("/languages", s.handleLanguages)
		r.Get("/providers", s.handleProviders)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
