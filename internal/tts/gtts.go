package tts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"video-dubber/internal/config"
	"video-dubber/internal/logger"
	"video-dubber/internal/media"
)

// gttsScript reads the text file named by argv[1] and saves speech to argv[3].
const gttsScript = `import sys
from gtts import gTTS
with open(sys.argv[1], encoding="utf-8") as f:
    text = f.read()
gTTS(text=text, lang=sys.argv[2]).save(sys.argv[3])
print("SUCCESS:" + sys.argv[3])
`

// GTTS uses the free Google Translate TTS through the gTTS Python package.
type GTTS struct {
	pythonPath string
	run        media.Runner
	log        zerolog.Logger
}

func NewGTTS(pythonPath string, run media.Runner) *GTTS {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	if run == nil {
		run = media.ExecRunner
	}
	return &GTTS{pythonPath: pythonPath, run: run, log: logger.WithComponent("gtts")}
}

func (g *GTTS) Name() string { return config.ProviderGTTS }

// CheckInstalled verifies the gtts module can be imported.
func (g *GTTS) CheckInstalled(ctx context.Context) error {
	if _, err := g.run(ctx, g.pythonPath, "-c", "import gtts"); err != nil {
		return fmt.Errorf("gTTS not installed. Install with: pip install gTTS")
	}
	return nil
}

// Synthesize ignores voice; gTTS only selects by language.
func (g *GTTS) Synthesize(ctx context.Context, text, lang, _ string, outPath string) error {
	textPath, err := writeTextFile(outPath, text)
	if err != nil {
		return err
	}
	defer os.Remove(textPath)

	log := logger.WithContext(ctx, g.log)
	log.Debug().
		Str("lang", lang).Int("chars", len(text)).Str(logger.FieldPath, outPath).
		Msg("running gTTS")

	output, err := g.run(ctx, g.pythonPath, "-c", gttsScript, textPath, lang, outPath)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("gTTS failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return requireAudio(outPath)
}
