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

// edgeLanguageVoices picks a voice when the caller names only a language.
var edgeLanguageVoices = map[string]string{
	"en": "en-US-AriaNeural",
	"es": "es-ES-ElviraNeural",
	"fr": "fr-FR-DeniseNeural",
	"de": "de-DE-KatjaNeural",
	"it": "it-IT-ElsaNeural",
	"pt": "pt-BR-FranciscaNeural",
	"ja": "ja-JP-NanamiNeural",
	"ko": "ko-KR-SunHiNeural",
	"zh": "zh-CN-XiaoxiaoNeural",
	"ru": "ru-RU-SvetlanaNeural",
	"ar": "ar-SA-ZariyahNeural",
	"hi": "hi-IN-SwaraNeural",
}

// EdgeTTS handles text-to-speech using Microsoft Edge TTS (FREE).
type EdgeTTS struct {
	binPath      string
	defaultVoice string
	run          media.Runner
	log          zerolog.Logger
}

func NewEdgeTTS(binPath, defaultVoice string, run media.Runner) *EdgeTTS {
	if binPath == "" {
		binPath = "edge-tts"
	}
	if defaultVoice == "" {
		defaultVoice = config.DefaultEdgeTTSVoice
	}
	if run == nil {
		run = media.ExecRunner
	}
	return &EdgeTTS{binPath: binPath, defaultVoice: defaultVoice, run: run, log: logger.WithComponent("edge-tts")}
}

func (e *EdgeTTS) Name() string { return config.ProviderEdgeTTS }

// CheckInstalled verifies edge-tts is installed.
func (e *EdgeTTS) CheckInstalled(ctx context.Context) error {
	if _, err := e.run(ctx, e.binPath, "--version"); err != nil {
		return fmt.Errorf("edge-tts not installed. Install with: pip install edge-tts")
	}
	return nil
}

// VoiceFor returns voice when it is set, else the language's voice, else the default.
func (e *EdgeTTS) VoiceFor(lang, voice string) string {
	if voice != "" && strings.HasSuffix(voice, "Neural") {
		return voice
	}
	if v, ok := edgeLanguageVoices[lang]; ok {
		return v
	}
	return e.defaultVoice
}

func (e *EdgeTTS) Synthesize(ctx context.Context, text, lang, voice, outPath string) error {
	textPath, err := writeTextFile(outPath, text)
	if err != nil {
		return err
	}
	defer os.Remove(textPath)

	voice = e.VoiceFor(lang, voice)
	log := logger.WithContext(ctx, e.log)
	log.Debug().Str("voice", voice).Str(logger.FieldPath, outPath).Msg("running edge-tts")

	output, err := e.run(ctx, e.binPath,
		"--file", textPath,
		"--voice", voice,
		"--write-media", outPath,
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("edge-tts failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return requireAudio(outPath)
}
