package translation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	internalhttp "video-dubber/internal/http"
)

// Lingva calls a Lingva Translate instance: GET {base}/{source}/{target}/{text}.
type Lingva struct {
	baseURL string
	client  internalhttp.Doer
}

// NewLingva creates a client for baseURL (e.g. https://lingva.ml/api/v1).
func NewLingva(baseURL string, client internalhttp.Doer) *Lingva {
	return &Lingva{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (l *Lingva) Name() string { return "lingva" }

type lingvaResponse struct {
	Translation string `json:"translation"`
	Error       string `json:"error,omitempty"`
}

func (l *Lingva) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if sourceLang == "" {
		sourceLang = SourceAuto
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		l.baseURL,
		url.PathEscape(sourceLang),
		url.PathEscape(targetLang),
		url.PathEscape(text),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("lingva: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lingva request failed: %w", err)
	}

	var out lingvaResponse
	if err := decodeJSON(resp, "lingva", &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("lingva: %s", out.Error)
	}
	if out.Translation == "" {
		return "", fmt.Errorf("lingva: unexpected response without translation")
	}
	return out.Translation, nil
}
