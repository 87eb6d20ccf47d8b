package transcription

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhisperCLI_Transcribe(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	require.NoError(t, os.WriteFile(audio, []byte("pcm"), 0644))

	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("Detected language: English"), os.WriteFile(filepath.Join(dir, "audio.txt"), []byte("Hello there.\n"), 0644)
	}

	w := NewWhisperCLI("python", "small", run)
	text, err := w.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.\n", text)

	joined := strings.Join(gotArgs, " ")
	assert.Contains(t, joined, "python -m whisper "+audio)
	assert.Contains(t, joined, "--model small")
	assert.Contains(t, joined, "--output_format txt")
	assert.Contains(t, joined, "--output_dir "+dir)
}

func TestWhisperCLI_NoTranscript(t *testing.T) {
	dir := t.TempDir()
	run := func(context.Context, string, ...string) ([]byte, error) { return nil, nil }

	_, err := NewWhisperCLI("", "", run).Transcribe(context.Background(), filepath.Join(dir, "a.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript")
}

func TestWhisperCLI_CommandFails(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("ModuleNotFoundError: No module named 'whisper'"), errors.New("exit status 1")
	}
	_, err := NewWhisperCLI("", "", run).Transcribe(context.Background(), "/tmp/a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ModuleNotFoundError")
}

func TestOpenAI_MissingKey(t *testing.T) {
	_, err := NewOpenAI("", "", nil).Transcribe(context.Background(), "/tmp/a.wav")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAI_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hola a todos"}`))
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(audio, []byte("pcm"), 0644))

	o := NewOpenAI("sk-test", srv.URL+"/v1", srv.Client())
	text, err := o.Transcribe(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "hola a todos", text)
}

func TestIsValidModel(t *testing.T) {
	assert.True(t, IsValidModel("base"))
	assert.False(t, IsValidModel("huge"))
}
