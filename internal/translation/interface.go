// Package translation provides interfaces and implementations for text translation services.
package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Translator is the interface for all translation services.
type Translator interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Translate translates text from sourceLang ("auto" to detect) into targetLang.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// SourceAuto asks the backend to detect the source language.
const SourceAuto = "auto"

// maxErrorBody bounds how much of an error response is echoed into errors.
const maxErrorBody = 512

// decodeJSON checks the status code and decodes a JSON body into v.
func decodeJSON(resp *http.Response, backend string, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s returned status %d: %s", backend, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: invalid response: %w", backend, err)
	}
	return nil
}
