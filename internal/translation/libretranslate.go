package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	internalhttp "video-dubber/internal/http"
)

// LibreTranslate calls a LibreTranslate server's /translate endpoint.
type LibreTranslate struct {
	baseURL string
	apiKey  string
	client  internalhttp.Doer
}

// NewLibreTranslate creates a client for baseURL (e.g. http://localhost:5000).
func NewLibreTranslate(baseURL, apiKey string, client internalhttp.Doer) *LibreTranslate {
	return &LibreTranslate{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (l *LibreTranslate) Name() string { return "libretranslate" }

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func (l *LibreTranslate) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if sourceLang == "" {
		sourceLang = SourceAuto
	}

	body, err := json.Marshal(libreRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("libretranslate: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("libretranslate request failed: %w", err)
	}

	var out libreResponse
	if err := decodeJSON(resp, "libretranslate", &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("libretranslate: %s", out.Error)
	}
	if out.TranslatedText == "" {
		return "", fmt.Errorf("libretranslate: unexpected response without translatedText")
	}
	return out.TranslatedText, nil
}
