package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/renameio/v2"
	openai "github.com/sashabaranov/go-openai"

	"video-dubber/internal/config"
	"video-dubber/internal/text"
)

// ErrMissingAPIKey is returned when the OpenAI backend is used without a key.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not configured")

// OpenAIVoices are the voices accepted by the speech endpoint.
var OpenAIVoices = map[string]string{
	"alloy":   "Alloy (Neutral)",
	"echo":    "Echo (Male)",
	"fable":   "Fable (British)",
	"onyx":    "Onyx (Deep Male)",
	"nova":    "Nova (Female)",
	"shimmer": "Shimmer (Soft Female)",
}

// OpenAI uses the paid OpenAI speech API. Text over the endpoint's input
// limit is spoken in sentence-aligned segments that concat joins.
type OpenAI struct {
	client       *openai.Client
	model        openai.SpeechModel
	defaultVoice string
	concat       Concatenator
	maxInput     int
}

// NewOpenAI creates the backend. An empty apiKey is reported on first use.
func NewOpenAI(apiKey, baseURL, model, defaultVoice string, httpClient *http.Client, concat Concatenator) *OpenAI {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if _, ok := OpenAIVoices[defaultVoice]; !ok {
		defaultVoice = config.DefaultOpenAIVoice
	}
	o := &OpenAI{
		model:        openai.SpeechModel(model),
		defaultVoice: defaultVoice,
		concat:       concat,
		maxInput:     config.OpenAITTSMaxInput,
	}
	if apiKey == "" {
		return o
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	o.client = openai.NewClientWithConfig(cfg)
	return o
}

func (o *OpenAI) Name() string { return config.ProviderOpenAI }

// Synthesize writes MP3 speech to outPath atomically. The speech API picks
// the language from the text, so lang is unused.
func (o *OpenAI) Synthesize(ctx context.Context, input, _ string, voice, outPath string) error {
	if o.client == nil {
		return ErrMissingAPIKey
	}
	if _, ok := OpenAIVoices[voice]; !ok {
		voice = o.defaultVoice
	}

	segments := text.SplitSentences(input, o.maxInput)
	return synthesizeSegments(ctx, segments, outPath, o.concat, config.OpenAITTSWorkers,
		func(ctx context.Context, segment, path string) error {
			return o.speak(ctx, segment, voice, path)
		})
}

func (o *OpenAI) speak(ctx context.Context, input, voice, outPath string) error {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          input,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	pf, err := renameio.NewPendingFile(outPath)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if _, err := io.Copy(pf, resp); err != nil {
		return fmt.Errorf("failed to write speech: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return err
	}
	return requireAudio(outPath)
}
