package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-dubber/internal/config"
	"video-dubber/models"
)

// argRunner records the args and writes fake audio to the path following outFlag.
type argRunner struct {
	args    []string
	text    string
	outFlag string
	outIdx  int
	err     error
}

func (r *argRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.args = append([]string{name}, args...)
	if r.err != nil {
		return []byte("boom"), r.err
	}
	var out, textFile string
	for i, a := range args {
		if a == "--file" && i+1 < len(args) {
			textFile = args[i+1]
		}
		if r.outFlag != "" && a == r.outFlag && i+1 < len(args) {
			out = args[i+1]
		}
	}
	if r.outFlag == "" {
		textFile = args[r.outIdx-2]
		out = args[r.outIdx]
	}
	if textFile != "" {
		b, err := os.ReadFile(textFile)
		if err != nil {
			return nil, err
		}
		r.text = string(b)
	}
	return nil, os.WriteFile(out, []byte("ID3mp3"), 0644)
}

func TestGTTS_Synthesize(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "speech.mp3")
	// args: -c script textPath lang out
	r := &argRunner{outIdx: 4}

	g := NewGTTS("python", r.run)
	require.NoError(t, g.Synthesize(context.Background(), `say "hi" '''`, "es", "", out))

	assert.Equal(t, "python", r.args[0])
	assert.Equal(t, "-c", r.args[1])
	assert.Equal(t, "es", r.args[4])
	assert.Equal(t, out, r.args[5])
	assert.Equal(t, `say "hi" '''`, r.text)

	// The text file is removed after synthesis.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGTTS_Failure(t *testing.T) {
	r := &argRunner{err: errors.New("exit status 1")}
	err := NewGTTS("", r.run).Synthesize(context.Background(), "x", "es", "", filepath.Join(t.TempDir(), "o.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gTTS failed")
}

func TestEdgeTTS_Synthesize(t *testing.T) {
	out := filepath.Join(t.TempDir(), "speech.mp3")
	r := &argRunner{outFlag: "--write-media"}

	e := NewEdgeTTS("", "", r.run)
	require.NoError(t, e.Synthesize(context.Background(), "bonjour", "fr", "", out))

	assert.Equal(t, "edge-tts", r.args[0])
	assert.Contains(t, r.args, "fr-FR-DeniseNeural")
	assert.Equal(t, "bonjour", r.text)
}

func TestEdgeTTS_VoiceFor(t *testing.T) {
	e := NewEdgeTTS("", "", nil)
	assert.Equal(t, "de-DE-ConradNeural", e.VoiceFor("de", "de-DE-ConradNeural"))
	assert.Equal(t, "ja-JP-NanamiNeural", e.VoiceFor("ja", ""))
	assert.Equal(t, "ja-JP-NanamiNeural", e.VoiceFor("ja", "alloy"))
	assert.Equal(t, config.DefaultEdgeTTSVoice, e.VoiceFor("xx", ""))
}

func TestEdgeTTS_EmptyOutput(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
	err := NewEdgeTTS("", "", run).Synthesize(context.Background(), "x", "en", "", filepath.Join(t.TempDir(), "o.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio")
}

func TestOpenAI_MissingKey(t *testing.T) {
	err := NewOpenAI("", "", "", "", nil, nil).Synthesize(context.Background(), "x", "en", "", "/tmp/x.mp3")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAI_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"voice":"nova"`)
		assert.Contains(t, string(body), `"model":"tts-1"`)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "speech.mp3")
	o := NewOpenAI("sk-test", srv.URL+"/v1", "", "alloy", srv.Client(), nil)
	require.NoError(t, o.Synthesize(context.Background(), "hello", "en", "nova", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ID3fake-mp3", string(data))
}

// fileConcatenator joins the listed files byte for byte.
type fileConcatenator struct {
	calls int
}

func (c *fileConcatenator) ConcatStreamCopy(_ context.Context, listPath, outputPath string) error {
	c.calls++
	list, err := os.ReadFile(listPath)
	if err != nil {
		return err
	}
	var joined []byte
	for _, line := range strings.Split(strings.TrimSpace(string(list)), "\n") {
		data, err := os.ReadFile(strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'"))
		if err != nil {
			return err
		}
		joined = append(joined, data...)
	}
	return os.WriteFile(outputPath, joined, 0644)
}

func TestOpenAI_SynthesizeLongTextInSegments(t *testing.T) {
	var (
		mu     sync.Mutex
		inputs []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if utf8.RuneCountInString(req.Input) > config.OpenAITTSMaxInput {
			http.Error(w, `{"error":{"message":"string too long"}}`, http.StatusBadRequest)
			return
		}
		mu.Lock()
		inputs = append(inputs, req.Input)
		mu.Unlock()
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	long := strings.Repeat("This translated sentence is long enough to matter here. ", 150)
	require.Greater(t, len(long), config.OpenAITTSMaxInput)

	dir := t.TempDir()
	out := filepath.Join(dir, "speech.mp3")
	concat := &fileConcatenator{}
	o := NewOpenAI("sk-test", srv.URL+"/v1", "", "alloy", srv.Client(), concat)
	require.NoError(t, o.Synthesize(context.Background(), long, "en", "", out))

	require.GreaterOrEqual(t, len(inputs), 3)
	words := 0
	for _, in := range inputs {
		assert.LessOrEqual(t, utf8.RuneCountInString(in), config.OpenAITTSMaxInput)
		assert.True(t, strings.HasSuffix(in, "."), "segment should end on a sentence")
		words += len(strings.Fields(in))
	}
	assert.Equal(t, len(strings.Fields(long)), words)
	assert.Equal(t, 1, concat.calls)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ID3", len(inputs)), string(data))

	// Only the joined file is left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenAI_SegmentsNeedConcatenator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	long := strings.Repeat("word ", config.OpenAITTSMaxInput)
	o := NewOpenAI("sk-test", srv.URL+"/v1", "", "alloy", srv.Client(), nil)
	err := o.Synthesize(context.Background(), long, "en", "", filepath.Join(t.TempDir(), "o.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no concatenator")
}

func TestRegistry(t *testing.T) {
	g := NewGTTS("", nil)
	e := NewEdgeTTS("", "", nil)
	r := NewRegistry(config.ProviderGTTS, g, e)

	s, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, g, s)

	s, err = r.Get(config.ProviderEdgeTTS)
	require.NoError(t, err)
	assert.Same(t, e, s)

	_, err = r.Get("piper")
	assert.ErrorIs(t, err, models.ErrSynthesis)
	assert.False(t, r.Has("piper"))
	assert.Equal(t, []string{"edge-tts", "gtts"}, r.Names())
}
