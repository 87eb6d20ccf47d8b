package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/logger"
	"video-dubber/internal/media"
)

// WhisperCLI runs the openai-whisper Python package locally:
// python -m whisper <audio> --model <m> --output_format txt --output_dir <dir>.
type WhisperCLI struct {
	pythonPath string
	model      string
	run        media.Runner
	log        zerolog.Logger
}

func NewWhisperCLI(pythonPath, model string, run media.Runner) *WhisperCLI {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	if model == "" {
		model = config.WhisperDefaultModel
	}
	if run == nil {
		run = media.ExecRunner
	}
	return &WhisperCLI{
		pythonPath: pythonPath,
		model:      model,
		run:        run,
		log:        logger.WithComponent("whisper"),
	}
}

func (w *WhisperCLI) Name() string { return "whisper" }

// CheckInstalled verifies the whisper module can be imported.
func (w *WhisperCLI) CheckInstalled(ctx context.Context) error {
	if _, err := w.run(ctx, w.pythonPath, "-c", "import whisper"); err != nil {
		return fmt.Errorf("whisper not installed. Install with: pip install openai-whisper")
	}
	return nil
}

// Transcribe writes <audio basename>.txt next to the audio file and returns its contents.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outDir := filepath.Dir(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	txtPath := filepath.Join(outDir, base+".txt")

	log := logger.WithContext(ctx, w.log)
	log.Debug().Str(logger.FieldPath, audioPath).Str("model", w.model).Msg("running whisper")

	output, err := w.run(ctx, w.pythonPath,
		"-m", "whisper", audioPath,
		"--model", w.model,
		"--output_format", "txt",
		"--output_dir", outDir,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("whisper failed: %w\nOutput: %s", err, lastLines(string(output), 20))
	}

	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("whisper produced no transcript at %s: %w", txtPath, err)
	}
	return string(data), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
