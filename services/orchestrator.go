package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"video-dubber/internal/janitor"
	"video-dubber/internal/logger"
	"video-dubber/internal/metrics"
	"video-dubber/internal/worker"
	"video-dubber/models"
)

// ChunkSplitter materializes the chunks of a long video into outDir.
type ChunkSplitter interface {
	Split(ctx context.Context, path string, chunkDuration float64, outDir string) ([]models.Chunk, error)
}

// ChunkCombiner joins dubbed chunks into one file.
type ChunkCombiner interface {
	Combine(ctx context.Context, chunks []models.ProcessedChunk, outPath string) (string, error)
}

// StageRunner runs the dubbing stages over one file.
type StageRunner interface {
	Run(ctx context.Context, req RunRequest, sink models.ProgressSink) (*RunResult, error)
}

// JobRequest is the work a job asks for, shared by short and chunked runs.
type JobRequest struct {
	ID             string
	SourcePath     string
	TargetLanguage string
	Provider       string
	Voice          string
	OutputPath     string
}

// OrchestratorOptions configures chunked processing.
type OrchestratorOptions struct {
	ChunkDuration float64 // seconds
	Concurrency   int
	CleanupChunks bool
	WorkDir       string
}

// OrchestratorResult is the outcome of a chunked job.
type OrchestratorResult struct {
	FinalPath      string
	Chunks         []models.ProcessedChunk
	TotalDuration  float64
	OriginalText   string
	TranslatedText string
}

// Orchestrator dubs a long video chunk by chunk and reassembles the result.
type Orchestrator struct {
	splitter ChunkSplitter
	pipeline StageRunner
	combiner ChunkCombiner
	janitor  *janitor.Janitor
	opts     OrchestratorOptions
	log      zerolog.Logger
}

func NewOrchestrator(s ChunkSplitter, p StageRunner, c ChunkCombiner, j *janitor.Janitor, opts OrchestratorOptions) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if j == nil {
		j = janitor.New()
	}
	return &Orchestrator{
		splitter: s,
		pipeline: p,
		combiner: c,
		janitor:  j,
		opts:     opts,
		log:      logger.WithComponent("orchestrator"),
	}
}

// Process splits the source, dubs every chunk through the worker pool and
// joins the results in index order. Reported progress is chunk-level:
// completed*100/N. Any chunk failure cancels the rest and returns a
// *models.ChunkProcessingError; no output is produced in that case.
func (o *Orchestrator) Process(ctx context.Context, req JobRequest, sink models.ChunkSink) (*OrchestratorResult, error) {
	log := logger.WithContext(ctx, o.log)

	runDir, err := os.MkdirTemp(o.opts.WorkDir, "chunks-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSplit, err)
	}
	keep := false
	defer func() {
		if !keep {
			o.janitor.RemoveDir(context.WithoutCancel(ctx), runDir)
		}
	}()

	chunks, err := o.splitter.Split(ctx, req.SourcePath, o.opts.ChunkDuration, runDir)
	if err != nil {
		return nil, err
	}
	total := len(chunks)
	if total == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", models.ErrSplit)
	}
	log.Info().Int("chunks", total).Int("workers", o.opts.Concurrency).Msg("processing chunks")
	sink.ReportChunk(0, total, 0, fmt.Sprintf("Split into %d chunks", total))

	var completed atomic.Int64
	process := func(ctx context.Context, job worker.Job[models.Chunk]) (models.ProcessedChunk, error) {
		c := job.Data
		done := int(completed.Load())
		sink.ReportChunk(c.Index, total, done*100/total, fmt.Sprintf("Processing chunk %d of %d", c.Index+1, total))

		res, err := o.pipeline.Run(ctx, RunRequest{
			MediaPath:      c.Path,
			TargetLanguage: req.TargetLanguage,
			Provider:       req.Provider,
			Voice:          req.Voice,
			WorkDir:        runDir,
			OutputPath:     filepath.Join(runDir, fmt.Sprintf("dubbed_%04d.mp4", c.Index)),
			Scale:          DefaultScale,
		}, &chunkStageSink{parent: sink, index: c.Index, total: total, completed: &completed})
		if err != nil {
			metrics.IncChunk("error")
			return models.ProcessedChunk{}, &models.ChunkProcessingError{Index: c.Index, Total: total, Err: err}
		}
		metrics.IncChunk("ok")
		// The source chunk is no longer needed once dubbed.
		o.janitor.DeleteIfExists(ctx, c.Path)

		return models.ProcessedChunk{
			Index:          c.Index,
			OriginalPath:   c.Path,
			FinalPath:      res.FinalPath,
			OriginalText:   res.OriginalText,
			TranslatedText: res.TranslatedText,
			StartTime:      c.StartTime,
			EndTime:        c.EndTime,
		}, nil
	}
	onDone := func(done, _ int) { completed.Store(int64(done)) }

	processed, err := worker.Process(ctx, chunks, o.opts.Concurrency, process, onDone)
	if err != nil {
		var (
			cpe *models.ChunkProcessingError
			pe  *worker.PanicError
		)
		switch {
		case errors.As(err, &cpe):
		case errors.As(err, &pe):
			log.Error().Int(logger.FieldChunk, pe.Index).Interface("panic", pe.Value).
				Str("stack", string(pe.Stack)).Msg("chunk pipeline panicked")
			metrics.IncChunk("error")
			err = &models.ChunkProcessingError{Index: pe.Index, Total: total, Err: pe}
		default:
			err = fmt.Errorf("%w: %w", models.ErrChunkProcessing, context.Cause(ctx))
		}
		log.Error().Err(err).Msg("chunk processing failed")
		return nil, err
	}

	sink.Report(models.StageMux, 0, "Combining chunks...")
	finalPath, err := o.combiner.Combine(ctx, processed, req.OutputPath)
	if err != nil {
		return nil, err
	}

	if !o.opts.CleanupChunks {
		keep = true
		log.Info().Str(logger.FieldPath, runDir).Msg("keeping chunk work directory")
	}

	originals := make([]string, len(processed))
	translations := make([]string, len(processed))
	for i, pc := range processed {
		originals[i] = pc.OriginalText
		translations[i] = pc.TranslatedText
	}
	return &OrchestratorResult{
		FinalPath:      finalPath,
		Chunks:         processed,
		TotalDuration:  chunks[total-1].EndTime,
		OriginalText:   strings.Join(originals, "\n\n"),
		TranslatedText: strings.Join(translations, "\n\n"),
	}, nil
}

// chunkStageSink forwards stage messages from one chunk's pipeline while
// keeping the reported percentage at chunk granularity.
type chunkStageSink struct {
	parent    models.ChunkSink
	index     int
	total     int
	completed *atomic.Int64
}

func (s *chunkStageSink) Report(stage models.Stage, _ int, message string) {
	done := int(s.completed.Load())
	s.parent.Report(stage, done*100/s.total, fmt.Sprintf("Chunk %d/%d: %s", s.index+1, s.total, message))
}
