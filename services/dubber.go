package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/janitor"
	"video-dubber/internal/logger"
	"video-dubber/internal/media"
	"video-dubber/internal/metrics"
	"video-dubber/internal/progress"
	"video-dubber/internal/text"
	"video-dubber/internal/tracker"
	"video-dubber/models"
)

// MediaProber reads source media metadata.
type MediaProber interface {
	Probe(ctx context.Context, path string) (media.ProbeResult, error)
}

// ChunkProcessor dubs a long video in chunks.
type ChunkProcessor interface {
	Process(ctx context.Context, req JobRequest, sink models.ChunkSink) (*OrchestratorResult, error)
}

// ProviderChecker reports whether a TTS provider name is usable.
type ProviderChecker interface {
	Has(name string) bool
}

// DubberOptions configures job handling.
type DubberOptions struct {
	OutputDir             string
	WorkDir               string
	LongVideoThreshold    float64 // seconds; longer videos are chunked
	ChunkDuration         float64 // seconds
	JobTimeout            time.Duration
	LongJobTimeout        time.Duration
	DeleteSourceOnSuccess bool
	Retention             time.Duration
	SweepInterval         time.Duration
	Estimates             progress.Table
}

// DubberDeps are the collaborators of a Dubber.
type DubberDeps struct {
	Tracker      *tracker.Tracker
	Prober       MediaProber
	Pipeline     StageRunner
	Orchestrator ChunkProcessor
	Providers    ProviderChecker
	Janitor      *janitor.Janitor
}

// SubmitRequest asks for one video to be dubbed.
type SubmitRequest struct {
	SourcePath     string
	TargetLanguage string
	Provider       string
	Voice          string
}

// Status is a job snapshot with its time estimate.
type Status struct {
	Job      *models.Job
	Estimate progress.Times
}

// Dubber accepts jobs and runs each one in its own goroutine.
type Dubber struct {
	deps DubberDeps
	opts DubberOptions
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func NewDubber(deps DubberDeps, opts DubberOptions) *Dubber {
	if deps.Janitor == nil {
		deps.Janitor = janitor.New()
	}
	if opts.LongVideoThreshold <= 0 {
		opts.LongVideoThreshold = config.DefaultLongVideoThreshold
	}
	if opts.ChunkDuration <= 0 {
		opts.ChunkDuration = config.DefaultChunkDuration
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = config.DefaultJobTimeout
	}
	if opts.LongJobTimeout <= 0 {
		opts.LongJobTimeout = config.DefaultLongJobTimeout
	}
	if opts.Retention <= 0 {
		opts.Retention = config.DefaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = config.DefaultSweepInterval
	}
	if opts.Estimates == (progress.Table{}) {
		opts.Estimates = progress.DefaultTable()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dubber{
		deps:   deps,
		opts:   opts,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		log:    logger.WithComponent("dubber"),
	}
}

// Submit validates req, records a new job and starts it in the background.
// It returns as soon as the job is tracked.
func (d *Dubber) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	lang, err := text.ValidateTargetLanguage(req.TargetLanguage)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrInvalidRequest, err)
	}
	if !d.deps.Providers.Has(req.Provider) {
		return "", fmt.Errorf("%w: unknown TTS provider %q", models.ErrInvalidRequest, req.Provider)
	}
	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrInvalidRequest, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", models.ErrInvalidRequest, req.SourcePath)
	}
	req.TargetLanguage = lang

	id := uuid.NewString()
	if _, err := d.deps.Tracker.Create(ctx, id, req.SourcePath, lang, req.Provider, req.Voice); err != nil {
		return "", err
	}

	d.wg.Add(1)
	go d.run(id, req)

	d.log.Info().
		Str(logger.FieldJobID, id).
		Str(logger.FieldPath, req.SourcePath).
		Str("lang", lang).
		Str(logger.FieldProvider, req.Provider).
		Msg("job submitted")
	return id, nil
}

func (d *Dubber) run(id string, req SubmitRequest) {
	defer d.wg.Done()

	ctx := logger.ContextWithJobID(d.ctx, id)
	// Tracker writes must land even after the job context is cancelled.
	trackCtx := context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, d.log)

	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("job panicked")
			d.fail(trackCtx, id, fmt.Errorf("internal error: %v", r))
		}
	}()

	// The wall-clock bound starts before the duration is read. Until it is known
	// the short-job timeout applies.
	started := time.Now()
	infoCtx, cancelInfo := context.WithTimeoutCause(ctx, d.opts.JobTimeout, models.ErrTimeout)
	info, err := d.deps.Prober.Probe(infoCtx, req.SourcePath)
	if err != nil {
		err = d.jobError(infoCtx, d.opts.JobTimeout, err)
		cancelInfo()
		d.fail(trackCtx, id, err)
		return
	}
	cancelInfo()

	long := media.IsLong(info.DurationSeconds, d.opts.LongVideoThreshold)
	timeout := d.opts.JobTimeout
	kind := "short"
	if long {
		timeout = d.opts.LongJobTimeout
		kind = "long"
	}
	metrics.IncJobSubmitted(kind)

	jobCtx, cancel := context.WithDeadlineCause(ctx, started.Add(timeout), models.ErrTimeout)
	defer cancel()

	jr := JobRequest{
		ID:             id,
		SourcePath:     req.SourcePath,
		TargetLanguage: req.TargetLanguage,
		Provider:       req.Provider,
		Voice:          req.Voice,
		OutputPath:     OutputPath(d.opts.OutputDir, req.SourcePath, req.TargetLanguage, id),
	}
	sink := &jobSink{ctx: trackCtx, tracker: d.deps.Tracker, id: id, log: log}

	log.Info().Float64("duration", info.DurationSeconds).Str("kind", kind).Dur("timeout", timeout).Msg("job started")

	var finalPath, original, translated string
	if long {
		sink.ReportChunk(0, media.EstimatedChunks(info.DurationSeconds, d.opts.ChunkDuration), 0, "Preparing chunks...")
		res, err := d.deps.Orchestrator.Process(jobCtx, jr, sink)
		if err != nil {
			d.fail(trackCtx, id, d.jobError(jobCtx, timeout, err))
			return
		}
		finalPath, original, translated = res.FinalPath, res.OriginalText, res.TranslatedText
	} else {
		res, err := d.deps.Pipeline.Run(jobCtx, RunRequest{
			MediaPath:      req.SourcePath,
			TargetLanguage: req.TargetLanguage,
			Provider:       req.Provider,
			Voice:          req.Voice,
			WorkDir:        d.opts.WorkDir,
			OutputPath:     jr.OutputPath,
			Scale:          DefaultScale,
		}, sink)
		if err != nil {
			d.fail(trackCtx, id, d.jobError(jobCtx, timeout, err))
			return
		}
		finalPath, original, translated = res.FinalPath, res.OriginalText, res.TranslatedText
	}

	// A result that arrives after the deadline is discarded.
	if jobCtx.Err() != nil {
		d.deps.Janitor.DeleteIfExists(trackCtx, finalPath)
		d.fail(trackCtx, id, d.jobError(jobCtx, timeout, context.Cause(jobCtx)))
		return
	}

	ok, err := d.deps.Tracker.Complete(trackCtx, id, finalPath, original, translated)
	if err != nil || !ok {
		log.Warn().Err(err).Msg("job finished but could not be marked completed")
		d.deps.Janitor.DeleteIfExists(trackCtx, finalPath)
		if err != nil {
			d.fail(trackCtx, id, fmt.Errorf("failed to record result: %w", err))
		}
		return
	}
	metrics.IncJobFinished(string(models.StatusCompleted))
	log.Info().Str("output", finalPath).Msg("job completed")

	if d.opts.DeleteSourceOnSuccess {
		d.deps.Janitor.DeleteIfExists(trackCtx, req.SourcePath)
	}
}

// jobError marks err as a timeout when the job deadline caused it.
func (d *Dubber) jobError(jobCtx context.Context, timeout time.Duration, err error) error {
	if !errors.Is(context.Cause(jobCtx), models.ErrTimeout) {
		return err
	}
	if errors.Is(err, models.ErrTimeout) {
		return fmt.Errorf("processing timeout exceeded after %v: %w", timeout, err)
	}
	return fmt.Errorf("%w after %v: %w", models.ErrTimeout, timeout, err)
}

func (d *Dubber) fail(ctx context.Context, id string, err error) {
	log := logger.WithContext(ctx, d.log)
	log.Error().Err(err).Msg("job failed")
	ok, terr := d.deps.Tracker.Fail(ctx, id, err.Error())
	if terr != nil {
		d.log.Warn().Err(terr).Str(logger.FieldJobID, id).Msg("failed to record job failure")
		return
	}
	if ok {
		metrics.IncJobFinished(string(models.StatusError))
	}
}

// Progress returns the job snapshot and its time estimate.
func (d *Dubber) Progress(ctx context.Context, id string) (*Status, error) {
	job, err := d.deps.Tracker.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	times, _ := progress.Estimate(job, d.now(), d.opts.Estimates)
	return &Status{Job: job, Estimate: times}, nil
}

// Result returns the output path of a completed job.
func (d *Dubber) Result(ctx context.Context, id string) (string, error) {
	job, err := d.deps.Tracker.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != models.StatusCompleted || job.ResultPath == "" {
		return "", fmt.Errorf("%w: status %s", models.ErrJobNotCompleted, job.Status)
	}
	return job.ResultPath, nil
}

// Jobs lists every tracked job.
func (d *Dubber) Jobs(ctx context.Context) ([]*models.Job, error) {
	return d.deps.Tracker.List(ctx)
}

// Sweep drops expired jobs and stale work directories.
func (d *Dubber) Sweep(ctx context.Context) {
	now := d.now()
	removed, err := d.deps.Tracker.SweepExpired(ctx, now)
	if err != nil {
		d.log.Warn().Err(err).Msg("job sweep failed")
	}
	metrics.AddJobsSwept(len(removed))
	if d.opts.WorkDir != "" {
		d.deps.Janitor.Sweep(ctx, d.opts.WorkDir, d.opts.Retention, now)
	}
}

// StartSweeper runs Sweep every SweepInterval until ctx is done or Shutdown is called.
func (d *Dubber) StartSweeper(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.opts.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				d.Sweep(ctx)
			}
		}
	}()
}

// Shutdown cancels running jobs and waits for their goroutines to exit.
func (d *Dubber) Shutdown(ctx context.Context) error {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jobSink writes pipeline and chunk progress to the tracker.
type jobSink struct {
	ctx     context.Context
	tracker *tracker.Tracker
	id      string
	log     zerolog.Logger
}

func (s *jobSink) Report(stage models.Stage, percent int, message string) {
	if err := s.tracker.UpdateProgress(s.ctx, s.id, int(stage), percent, message); err != nil {
		s.log.Warn().Err(err).Msg("progress update failed")
	}
}

func (s *jobSink) ReportChunk(current, total, percent int, message string) {
	if err := s.tracker.SetChunks(s.ctx, s.id, current, total); err != nil {
		s.log.Warn().Err(err).Msg("chunk update failed")
		return
	}
	if err := s.tracker.UpdateProgress(s.ctx, s.id, 0, percent, message); err != nil {
		s.log.Warn().Err(err).Msg("progress update failed")
	}
}
