package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"video-dubber/internal/chunking"
	"video-dubber/internal/janitor"
	"video-dubber/internal/media"
	"video-dubber/internal/tts"
	"video-dubber/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeMedia stands in for ffmpeg. Files are written with recognizable contents
// so the tests can follow data through the stages.
type fakeMedia struct {
	mu        sync.Mutex
	duration  float64
	stallInfo bool
	failMux   string // mux fails for media paths containing this
	extracted []string
	muxed     []string
}

func (f *fakeMedia) Probe(ctx context.Context, path string) (media.ProbeResult, error) {
	if f.stallInfo {
		<-ctx.Done()
		return media.ProbeResult{}, fmt.Errorf("%w: %w", models.ErrProbe, ctx.Err())
	}
	if _, err := os.Stat(path); err != nil {
		return media.ProbeResult{}, fmt.Errorf("%w: %w", models.ErrProbe, err)
	}
	return media.ProbeResult{DurationSeconds: f.duration, HasVideo: true, HasAudio: true}, nil
}

func (f *fakeMedia) ExtractAudio(_ context.Context, videoPath, outputPath string) error {
	f.mu.Lock()
	f.extracted = append(f.extracted, videoPath)
	f.mu.Unlock()
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append([]byte("audio:"), data...), 0644)
}

func (f *fakeMedia) MuxVideoAudio(_ context.Context, videoPath, audioPath, outputPath string) error {
	f.mu.Lock()
	f.muxed = append(f.muxed, videoPath)
	f.mu.Unlock()
	if f.failMux != "" && strings.Contains(videoPath, f.failMux) {
		return errors.New("ffmpeg: Output file is empty, nothing was encoded")
	}
	speech, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("["+string(speech)+"]"), 0644)
}

func (f *fakeMedia) CutTimeRange(_ context.Context, _, dst string, start, duration float64, _ bool) error {
	return os.WriteFile(dst, []byte(fmt.Sprintf("%.0f-%.0f", start, start+duration)), 0644)
}

func (f *fakeMedia) extractedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.extracted...)
}

// fakeTranscriber returns a whisper-like transcript, or blocks until the context ends.
type fakeTranscriber struct {
	raw   string
	block bool
	hook  func()
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if f.hook != nil {
		f.hook()
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.raw != "" {
		return f.raw, nil
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}
	return "Detected language: English\n" + string(data) + "\n", nil
}

type fakeTranslator struct {
	err   error
	block bool
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(ctx context.Context, text, _, target string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return target + "(" + text + ")", nil
}

type fakeSynth struct{}

func (fakeSynth) Name() string { return "gtts" }

func (fakeSynth) Synthesize(_ context.Context, text, _, _, outPath string) error {
	return os.WriteFile(outPath, []byte(text), 0644)
}

// fileConcat joins the files named in a concat list.
type fileConcat struct{}

func (fileConcat) ConcatStreamCopy(_ context.Context, listPath, outputPath string) error {
	f, err := os.Open(listPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var joined strings.Builder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		path := strings.TrimSuffix(strings.TrimPrefix(sc.Text(), "file '"), "'")
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		joined.Write(data)
	}
	return os.WriteFile(outputPath, []byte(joined.String()), 0644)
}

type harness struct {
	media       *fakeMedia
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	registry    *tts.Registry
	janitor     *janitor.Janitor
	pipeline    *Pipeline
	workDir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		media:       &fakeMedia{duration: 120},
		transcriber: &fakeTranscriber{},
		translator:  &fakeTranslator{},
		registry:    tts.NewRegistry("gtts", fakeSynth{}),
		janitor:     janitor.New(),
		workDir:     t.TempDir(),
	}
	h.pipeline = NewPipeline(PipelineDeps{
		Media:       h.media,
		Transcriber: h.transcriber,
		Translator:  h.translator,
		Voices:      h.registry,
		Janitor:     h.janitor,
	}, 0)
	return h
}

func (h *harness) orchestrator(concurrency int, cleanup bool) *Orchestrator {
	splitter := chunking.NewSplitter(h.media, h.media, h.janitor, false)
	combiner := chunking.NewReassembler(fileConcat{}, h.janitor)
	return NewOrchestrator(splitter, h.pipeline, combiner, h.janitor, OrchestratorOptions{
		ChunkDuration: 600,
		Concurrency:   concurrency,
		CleanupChunks: cleanup,
		WorkDir:       h.workDir,
	})
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type report struct {
	stage   models.Stage
	percent int
	message string
}

type chunkReport struct {
	current, total, percent int
}

// recordingSink captures every report.
type recordingSink struct {
	mu      sync.Mutex
	reports []report
	chunks  []chunkReport
}

func (r *recordingSink) Report(stage models.Stage, percent int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{stage, percent, message})
}

func (r *recordingSink) ReportChunk(current, total, percent int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunkReport{current, total, percent})
}

func (r *recordingSink) percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.reports))
	for i, rep := range r.reports {
		out[i] = rep.percent
	}
	return out
}
