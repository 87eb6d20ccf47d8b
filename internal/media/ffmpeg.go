// Package media provides audio/video processing utilities using FFmpeg.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/limiter"
	"video-dubber/internal/logger"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpegService wraps FFmpeg commands for audio/video processing.
type FFmpegService struct {
	ffmpegPath  string
	ffprobePath string
	run         Runner
	cache       *ProbeCache
	cpu         *limiter.CPU
	log         zerolog.Logger
}

// Option customizes an FFmpegService.
type Option func(*FFmpegService)

// WithRunner replaces the command runner (tests use a fake).
func WithRunner(r Runner) Option {
	return func(s *FFmpegService) { s.run = r }
}

// WithLimiter bounds concurrent ffmpeg processes with l.
func WithLimiter(l *limiter.CPU) Option {
	return func(s *FFmpegService) { s.cpu = l }
}

// WithProbeCache shares a probe cache between services.
func WithProbeCache(c *ProbeCache) Option {
	return func(s *FFmpegService) { s.cache = c }
}

// NewFFmpegService creates a service for the given binaries. Empty paths fall back to PATH lookup.
func NewFFmpegService(ffmpegPath, ffprobePath string, opts ...Option) *FFmpegService {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	s := &FFmpegService{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		run:         ExecRunner,
		cache:       NewProbeCache(),
		cpu:         limiter.Default(),
		log:         logger.WithComponent("ffmpeg"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckInstalled verifies ffmpeg and ffprobe are available.
func (s *FFmpegService) CheckInstalled(ctx context.Context) error {
	if _, err := s.run(ctx, s.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", s.ffmpegPath, err)
	}
	if _, err := s.run(ctx, s.ffprobePath, "-version"); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", s.ffprobePath, err)
	}
	return nil
}

// ExtractAudio extracts audio from video and converts to WAV format (16kHz mono for Whisper).
func (s *FFmpegService) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	s.log.Debug().Str(logger.FieldPath, outputPath).Msg("extracting audio")

	if err := ensureDir(outputPath); err != nil {
		return err
	}

	args := []string{
		"-i", videoPath,
		"-vn",
		"-ar", strconv.Itoa(config.AudioSampleRate16k),
		"-ac", "1",
		"-acodec", "pcm_s16le",
		"-y",
		outputPath,
	}

	if err := s.ffmpeg(ctx, args, "audio extraction"); err != nil {
		return err
	}
	return requireOutput(outputPath, "audio extraction")
}

// CutTimeRange copies [start, start+duration) of src into dst. Stream copy cuts on
// keyframes; reencode trades speed for frame accuracy.
func (s *FFmpegService) CutTimeRange(ctx context.Context, src, dst string, start, duration float64, reencode bool) error {
	s.log.Debug().Str(logger.FieldPath, dst).Float64("start", start).Float64("duration", duration).Msg("cutting chunk")

	if err := ensureDir(dst); err != nil {
		return err
	}

	args := []string{
		"-ss", formatSeconds(start),
		"-i", src,
		"-t", formatSeconds(duration),
	}
	if reencode {
		args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, "-avoid_negative_ts", "make_zero", "-y", dst)

	if err := s.ffmpeg(ctx, args, "chunk cut"); err != nil {
		return err
	}
	return requireOutput(dst, "chunk cut")
}

// MuxVideoAudio replaces the audio track of videoPath with audioPath. The video stream
// is copied, the audio is encoded to AAC and the output stops at the shorter input.
func (s *FFmpegService) MuxVideoAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	s.log.Debug().Str(logger.FieldPath, outputPath).Msg("muxing video and audio")

	if err := ensureDir(outputPath); err != nil {
		return err
	}

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", config.DubbedAudioBitrate,
		"-shortest",
		"-y",
		outputPath,
	}

	if err := s.ffmpeg(ctx, args, "muxing"); err != nil {
		return err
	}
	return requireOutput(outputPath, "muxing")
}

// ConcatStreamCopy joins the files listed in a concat-demuxer list without re-encoding.
func (s *FFmpegService) ConcatStreamCopy(ctx context.Context, listPath, outputPath string) error {
	s.log.Debug().Str(logger.FieldPath, outputPath).Msg("concatenating chunks")

	if err := ensureDir(outputPath); err != nil {
		return err
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}

	if err := s.ffmpeg(ctx, args, "concat"); err != nil {
		return err
	}
	return requireOutput(outputPath, "concat")
}

// ffmpeg runs one ffmpeg invocation inside a CPU slot.
func (s *FFmpegService) ffmpeg(ctx context.Context, args []string, operation string) error {
	if s.cpu != nil {
		if err := s.cpu.Acquire(ctx); err != nil {
			return fmt.Errorf("ffmpeg %s: waiting for cpu slot: %w", operation, err)
		}
		defer s.cpu.Release()
	}

	output, err := s.run(ctx, s.ffmpegPath, append([]string{"-hide_banner", "-nostdin"}, args...)...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg %s: %w", operation, ctx.Err())
		}
		return fmt.Errorf("ffmpeg %s failed: %w\nOutput: %s", operation, err, tail(output, 2048))
	}
	return nil
}

// ensureDir creates the parent directory for a file path.
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// requireOutput fails when ffmpeg exited cleanly but produced nothing.
func requireOutput(path, operation string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ffmpeg %s produced no output: %w", operation, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg %s produced an empty file %s", operation, path)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return "..." + string(b[len(b)-n:])
}
