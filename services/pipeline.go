package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/janitor"
	"video-dubber/internal/logger"
	"video-dubber/internal/metrics"
	"video-dubber/internal/text"
	"video-dubber/internal/translation"
	"video-dubber/internal/tts"
	"video-dubber/models"
)

// MediaTools is the subset of the ffmpeg toolkit a pipeline run needs.
type MediaTools interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string) error
	MuxVideoAudio(ctx context.Context, videoPath, audioPath, outputPath string) error
}

// Transcriber converts speech audio to raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// VoiceRegistry resolves a TTS provider name.
type VoiceRegistry interface {
	Get(name string) (tts.Synthesizer, error)
}

// StageScale holds the job percentage reported when each stage starts,
// followed by the percentage reported once the mux has finished.
type StageScale [models.StageCount + 1]int

// DefaultScale spreads a single video over the whole 0-100 range.
var DefaultScale = StageScale{
	config.ProgressExtract,
	config.ProgressTranscribe,
	config.ProgressTranslate,
	config.ProgressSynthesize,
	config.ProgressMux,
	config.ProgressDone,
}

// RunRequest describes one pipeline run over a single media file.
type RunRequest struct {
	MediaPath      string
	TargetLanguage string
	Provider       string
	Voice          string
	// WorkDir is the parent of the per-run scratch directory. Empty uses os.TempDir.
	WorkDir    string
	OutputPath string
	Scale      StageScale
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	FinalPath      string
	OriginalText   string
	TranslatedText string
	Elapsed        time.Duration
}

// PipelineDeps are the collaborators of a Pipeline.
type PipelineDeps struct {
	Media       MediaTools
	Transcriber Transcriber
	Translator  translation.Translator
	Voices      VoiceRegistry
	Janitor     *janitor.Janitor
}

// Pipeline runs the five dubbing stages over one media file:
// extract audio, transcribe, translate, synthesize speech, mux.
type Pipeline struct {
	media        MediaTools
	transcriber  Transcriber
	translator   translation.Translator
	voices       VoiceRegistry
	janitor      *janitor.Janitor
	stageTimeout time.Duration
	log          zerolog.Logger
}

func NewPipeline(deps PipelineDeps, stageTimeout time.Duration) *Pipeline {
	if deps.Janitor == nil {
		deps.Janitor = janitor.New()
	}
	if stageTimeout <= 0 {
		stageTimeout = config.DefaultStageTimeout
	}
	return &Pipeline{
		media:        deps.Media,
		transcriber:  deps.Transcriber,
		translator:   deps.Translator,
		voices:       deps.Voices,
		janitor:      deps.Janitor,
		stageTimeout: stageTimeout,
		log:          logger.WithComponent("pipeline"),
	}
}

// Run executes the stages strictly in order. Each stage reports its start to
// sink; a final report follows the mux. Intermediate audio is deleted on every
// path; the input media is never touched. Failures are *models.StageError.
func (p *Pipeline) Run(ctx context.Context, req RunRequest, sink models.ProgressSink) (*RunResult, error) {
	if sink == nil {
		sink = models.DiscardProgress
	}
	scale := req.Scale
	if scale == (StageScale{}) {
		scale = DefaultScale
	}
	if req.OutputPath == "" {
		return nil, models.NewStageError(models.StageMux, models.ErrMux, errors.New("no output path"))
	}

	log := logger.WithContext(ctx, p.log).With().Str(logger.FieldPath, req.MediaPath).Logger()
	start := time.Now()

	runDir, err := os.MkdirTemp(req.WorkDir, "run-*")
	if err != nil {
		return nil, models.NewStageError(models.StageExtract, models.ErrMedia, err)
	}
	// Stage 1 and 4 artifacts live here.
	defer p.janitor.RemoveDir(context.WithoutCancel(ctx), runDir)

	audioPath := filepath.Join(runDir, "audio.wav")
	speechPath := filepath.Join(runDir, "speech.mp3")

	// Step 1: Extract audio
	err = p.stage(ctx, models.StageExtract, models.ErrMedia, scale, sink, func(ctx context.Context) error {
		return p.media.ExtractAudio(ctx, req.MediaPath, audioPath)
	})
	if err != nil {
		return nil, err
	}

	// Step 2: Transcribe
	var original string
	err = p.stage(ctx, models.StageTranscribe, models.ErrTranscription, scale, sink, func(ctx context.Context) error {
		raw, err := p.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return err
		}
		original = text.CleanTranscription(raw)
		if original == "" {
			return errors.New("no speech detected")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Int("chars", len(original)).Msg("transcribed")

	// Step 3: Translate
	var translated string
	err = p.stage(ctx, models.StageTranslate, models.ErrTranslation, scale, sink, func(ctx context.Context) error {
		out, err := p.translator.Translate(ctx, original, translation.SourceAuto, req.TargetLanguage)
		if err != nil {
			return err
		}
		if out == "" {
			return errors.New("empty translation")
		}
		translated = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Step 4: Synthesize speech
	err = p.stage(ctx, models.StageSynthesize, models.ErrSynthesis, scale, sink, func(ctx context.Context) error {
		synth, err := p.voices.Get(req.Provider)
		if err != nil {
			return err
		}
		return synth.Synthesize(ctx, translated, req.TargetLanguage, req.Voice, speechPath)
	})
	if err != nil {
		return nil, err
	}
	p.janitor.DeleteIfExists(ctx, audioPath)

	// Step 5: Mux original video with the new audio
	err = p.stage(ctx, models.StageMux, models.ErrMux, scale, sink, func(ctx context.Context) error {
		if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0755); err != nil {
			return err
		}
		return p.media.MuxVideoAudio(ctx, req.MediaPath, speechPath, req.OutputPath)
	})
	if err != nil {
		p.janitor.DeleteIfExists(context.WithoutCancel(ctx), req.OutputPath)
		return nil, err
	}
	p.janitor.DeleteIfExists(ctx, speechPath)

	sink.Report(models.StageMux, scale[models.StageCount], "Dubbed video ready")
	elapsed := time.Since(start)
	log.Info().Dur("elapsed", elapsed).Str("output", req.OutputPath).Msg("pipeline finished")

	return &RunResult{
		FinalPath:      req.OutputPath,
		OriginalText:   original,
		TranslatedText: translated,
		Elapsed:        elapsed,
	}, nil
}

// stage reports the start of s, runs fn under the per-stage timeout and
// classifies any failure as kind.
func (p *Pipeline) stage(ctx context.Context, s models.Stage, kind error, scale StageScale, sink models.ProgressSink, fn func(context.Context) error) error {
	if ctx.Err() != nil {
		return models.NewStageError(s, kind, context.Cause(ctx))
	}
	sink.Report(s, scale[s-1], s.StatusText())

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	started := time.Now()
	err := fn(stageCtx)
	metrics.ObserveStage(s.String(), time.Since(started))
	if err == nil {
		return nil
	}

	metrics.IncStageError(s.String())
	switch {
	case ctx.Err() != nil:
		// Job-level cancellation or timeout; keep the cause visible to errors.Is.
		if cause := context.Cause(ctx); !errors.Is(err, cause) {
			err = fmt.Errorf("%w: %v", cause, err)
		}
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("stage timed out after %v: %w", p.stageTimeout, err)
	}
	log := logger.WithContext(ctx, p.log)
	log.Warn().Err(err).Str(logger.FieldStage, s.String()).Msg("stage failed")
	return models.NewStageError(s, kind, err)
}
