package transcription

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when the OpenAI backend is used without a key.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not configured")

// OpenAI transcribes with the hosted Whisper API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the backend. An empty apiKey is accepted here and
// reported on first use, so the provider can be listed without credentials.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	o := &OpenAI{model: openai.Whisper1}
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

func (o *OpenAI) Name() string { return "openai-whisper" }

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if o.client == nil {
		return "", ErrMissingAPIKey
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.Text, nil
}
