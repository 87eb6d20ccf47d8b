// Package tts provides interfaces and implementations for text-to-speech services.
package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Synthesizer is the interface for all TTS services.
type Synthesizer interface {
	// Name is the provider key used by the Registry.
	Name() string

	// Synthesize speaks text in lang and writes the audio to outPath.
	// An empty voice selects the provider default for lang.
	Synthesize(ctx context.Context, text, lang, voice, outPath string) error
}

// writeTextFile stores text next to outPath so CLI backends never receive it on argv.
func writeTextFile(outPath, text string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(outPath), "tts_text_*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create text file: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func requireAudio(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("no audio written to %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty audio written to %s", path)
	}
	return nil
}
