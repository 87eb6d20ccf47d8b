// Package transcription provides interfaces and implementations for speech-to-text services.
package transcription

import "context"

// Transcriber is the interface for all transcription services.
type Transcriber interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Transcribe converts an audio file to raw transcript text. The result may
	// contain tool noise; callers clean it before translation.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// AvailableModels returns the list of available Whisper model sizes.
func AvailableModels() []string {
	return []string{
		"tiny",   // ~75MB, fastest
		"base",   // ~150MB, good balance
		"small",  // ~500MB, better accuracy
		"medium", // ~1.5GB, high accuracy
		"large",  // ~3GB, best accuracy
	}
}

// IsValidModel reports whether model is a known Whisper model size.
func IsValidModel(model string) bool {
	for _, m := range AvailableModels() {
		if m == model {
			return true
		}
	}
	return false
}
