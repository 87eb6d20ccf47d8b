package cli

import (
	"context"
	"fmt"
	"os"

	"video-dubber/internal/chunking"
	"video-dubber/internal/config"
	internalhttp "video-dubber/internal/http"
	"video-dubber/internal/janitor"
	"video-dubber/internal/limiter"
	"video-dubber/internal/logger"
	"video-dubber/internal/media"
	"video-dubber/internal/progress"
	"video-dubber/internal/tracker"
	"video-dubber/internal/transcription"
	"video-dubber/internal/translation"
	"video-dubber/internal/tts"
	"video-dubber/models"
	"video-dubber/services"
)

// app holds the wired components shared by the serve and process commands.
type app struct {
	cfg    *models.Config
	media  *media.FFmpegService
	voices *tts.Registry
	dubber *services.Dubber
	store  tracker.JobStore
}

type appOptions struct {
	deleteSourceOnSuccess bool
	runner                media.Runner // nil uses exec
}

func newApp(ctx context.Context, cfg *models.Config, opts appOptions) (*app, error) {
	resolveTools(cfg)
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.OutputDir, cfg.Paths.WorkDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	store, err := tracker.OpenStore(ctx, cfg.Tracker)
	if err != nil {
		return nil, err
	}
	tr := tracker.New(store, tracker.WithRetention(cfg.Tracker.Retention))
	log := logger.WithComponent("app")
	interrupted, err := tr.FailInterrupted(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("reconcile interrupted jobs: %w", err)
	}
	if len(interrupted) > 0 {
		log.Warn().Int("jobs", len(interrupted)).Msg("marked jobs interrupted by restart as failed")
	}
	jan := janitor.New()

	mediaOpts := []media.Option{
		media.WithLimiter(limiter.NewCPU(cfg.MaxCPUOperations)),
		media.WithProbeCache(media.NewProbeCache()),
	}
	if opts.runner != nil {
		mediaOpts = append(mediaOpts, media.WithRunner(opts.runner))
	}
	ffm := media.NewFFmpegService(cfg.Tools.FFmpegPath, cfg.Tools.FFprobePath, mediaOpts...)

	voices := newVoiceRegistry(cfg, ffm, opts.runner)

	pipeline := services.NewPipeline(services.PipelineDeps{
		Media:       ffm,
		Transcriber: newTranscriber(cfg, opts.runner),
		Translator:  newTranslator(cfg),
		Voices:      voices,
		Janitor:     jan,
	}, cfg.Timeouts.Stage)

	orchestrator := services.NewOrchestrator(
		chunking.NewSplitter(ffm, ffm, jan, cfg.Chunking.ReencodeChunks),
		pipeline,
		chunking.NewReassembler(ffm, jan),
		jan,
		services.OrchestratorOptions{
			ChunkDuration: cfg.Chunking.ChunkDuration,
			Concurrency:   cfg.Chunking.Concurrency,
			CleanupChunks: cfg.Chunking.CleanupChunks,
			WorkDir:       cfg.Paths.WorkDir,
		},
	)

	dubber := services.NewDubber(services.DubberDeps{
		Tracker:      tr,
		Prober:       ffm,
		Pipeline:     pipeline,
		Orchestrator: orchestrator,
		Providers:    voices,
		Janitor:      jan,
	}, services.DubberOptions{
		OutputDir:             cfg.Paths.OutputDir,
		WorkDir:               cfg.Paths.WorkDir,
		LongVideoThreshold:    cfg.Chunking.LongVideoThreshold,
		ChunkDuration:         cfg.Chunking.ChunkDuration,
		JobTimeout:            cfg.Timeouts.Job,
		LongJobTimeout:        cfg.Timeouts.LongJob,
		DeleteSourceOnSuccess: opts.deleteSourceOnSuccess,
		Retention:             cfg.Tracker.Retention,
		SweepInterval:         cfg.Tracker.SweepInterval,
		Estimates:             progress.TableFromConfig(cfg),
	})

	log.Info().
		Str("store", cfg.Tracker.Backend).
		Str("transcriber", cfg.Transcription.Provider).
		Strs("tts", voices.Names()).
		Int("chunk_concurrency", cfg.Chunking.Concurrency).
		Msg("components wired")

	return &app{cfg: cfg, media: ffm, voices: voices, dubber: dubber, store: store}, nil
}

// Close stops running jobs and releases the job store.
func (a *app) Close(ctx context.Context) error {
	shutdownErr := a.dubber.Shutdown(ctx)
	if err := a.store.Close(); err != nil {
		return err
	}
	return shutdownErr
}

// resolveTools turns bare tool names into absolute paths when they can be found
// and expands ~ in the data directories.
func resolveTools(cfg *models.Config) {
	for _, p := range []*string{&cfg.Tools.FFmpegPath, &cfg.Tools.FFprobePath, &cfg.Tools.PythonPath, &cfg.Tools.EdgeTTSPath} {
		*p = services.ResolveTool(*p)
	}
	for _, p := range []*string{&cfg.Paths.UploadDir, &cfg.Paths.OutputDir, &cfg.Paths.WorkDir} {
		*p = services.ExpandHome(*p)
	}
}

func newTranscriber(cfg *models.Config, run media.Runner) transcription.Transcriber {
	if cfg.Transcription.Provider == config.TranscriberOpenAI {
		return transcription.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, nil)
	}
	return transcription.NewWhisperCLI(cfg.Tools.PythonPath, cfg.Tools.WhisperModel, run)
}

// newTranslator puts LibreTranslate in front of Lingva, both paced by one limiter.
func newTranslator(cfg *models.Config) translation.Translator {
	httpCfg := internalhttp.DefaultClientConfig()
	httpCfg.Timeout = cfg.Translation.Timeout
	client := internalhttp.NewLimitedClient(
		internalhttp.NewPooledClient(httpCfg),
		cfg.Translation.RequestsPerSecond,
		cfg.Translation.Burst,
	)
	return translation.NewFallback(
		translation.NewLibreTranslate(cfg.Translation.LibreTranslateURL, cfg.Translation.LibreTranslateAPIKey, client),
		translation.NewLingva(cfg.Translation.LingvaURL, client),
	)
}

// newVoiceRegistry registers gTTS and edge-tts always and OpenAI TTS when a key
// is configured. OpenAI joins its segments with ffm.
func newVoiceRegistry(cfg *models.Config, ffm *media.FFmpegService, run media.Runner) *tts.Registry {
	synths := []tts.Synthesizer{
		tts.NewGTTS(cfg.Tools.PythonPath, run),
		tts.NewEdgeTTS(cfg.Tools.EdgeTTSPath, cfg.TTS.EdgeVoice, run),
	}
	if cfg.OpenAI.APIKey != "" {
		synths = append(synths, tts.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.TTS.OpenAIModel, cfg.TTS.OpenAIVoice, nil, ffm))
	}
	return tts.NewRegistry(cfg.TTS.DefaultProvider, synths...)
}
