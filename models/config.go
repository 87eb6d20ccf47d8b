package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"video-dubber/internal/config"
)

// Config holds application settings. Values are resolved as ENV > YAML file > defaults.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Paths         PathsConfig         `yaml:"paths"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Timeouts      TimeoutsConfig      `yaml:"timeouts"`
	Tracker       TrackerConfig       `yaml:"tracker"`
	Tools         ToolsConfig         `yaml:"tools"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Translation   TranslationConfig   `yaml:"translation"`
	TTS           TTSConfig           `yaml:"tts"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Estimates     EstimatesConfig     `yaml:"estimates"`
	Log           LogConfig           `yaml:"log"`

	// MaxCPUOperations bounds concurrent ffmpeg processes across all jobs.
	MaxCPUOperations int `yaml:"max_cpu_operations"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	UploadRateLimit int    `yaml:"upload_rate_limit"` // per minute per IP, 0 disables
}

type PathsConfig struct {
	UploadDir string `yaml:"upload_dir"`
	OutputDir string `yaml:"output_dir"`
	WorkDir   string `yaml:"work_dir"`
}

type ChunkingConfig struct {
	ChunkDuration      float64 `yaml:"chunk_duration"` // seconds
	LongVideoThreshold float64 `yaml:"long_video_threshold"`
	Concurrency        int     `yaml:"concurrency"`
	CleanupChunks      bool    `yaml:"cleanup_chunks"`
	ReencodeChunks     bool    `yaml:"reencode_chunks"` // frame-accurate cuts at the cost of an encode
}

type TimeoutsConfig struct {
	Job     time.Duration `yaml:"job"`
	LongJob time.Duration `yaml:"long_job"`
	Stage   time.Duration `yaml:"stage"`
}

type TrackerConfig struct {
	Backend       string        `yaml:"backend"` // memory, sqlite, redis, badger
	Path          string        `yaml:"path"`    // sqlite file or badger directory
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type ToolsConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	PythonPath   string `yaml:"python_path"`
	EdgeTTSPath  string `yaml:"edge_tts_path"`
	WhisperModel string `yaml:"whisper_model"`
}

type TranscriptionConfig struct {
	Provider string `yaml:"provider"` // whisper, openai
}

type TranslationConfig struct {
	LibreTranslateURL    string        `yaml:"libretranslate_url"`
	LibreTranslateAPIKey string        `yaml:"libretranslate_api_key"`
	LingvaURL            string        `yaml:"lingva_url"`
	RequestsPerSecond    float64       `yaml:"requests_per_second"`
	Burst                int           `yaml:"burst"`
	Timeout              time.Duration `yaml:"timeout"`
}

type TTSConfig struct {
	DefaultProvider string `yaml:"default_provider"`
	EdgeVoice       string `yaml:"edge_voice"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIVoice     string `yaml:"openai_voice"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EstimatesConfig is the fixed duration table used before any stage finishes.
type EstimatesConfig struct {
	Extract    time.Duration `yaml:"extract"`
	Transcribe time.Duration `yaml:"transcribe"`
	Translate  time.Duration `yaml:"translate"`
	Synthesize time.Duration `yaml:"synthesize"`
	Mux        time.Duration `yaml:"mux"`
	PerChunk   time.Duration `yaml:"per_chunk"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func DefaultConfig() *Config {
	dataDir := "data"
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			MaxUploadBytes:  config.DefaultMaxUploadBytes,
			UploadRateLimit: config.DefaultUploadRateLimit,
		},
		Paths: PathsConfig{
			UploadDir: filepath.Join(dataDir, "uploads"),
			OutputDir: filepath.Join(dataDir, "output"),
			WorkDir:   filepath.Join(dataDir, "work"),
		},
		Chunking: ChunkingConfig{
			ChunkDuration:      config.DefaultChunkDuration,
			LongVideoThreshold: config.DefaultLongVideoThreshold,
			Concurrency:        config.DefaultChunkConcurrency,
			CleanupChunks:      true,
		},
		Timeouts: TimeoutsConfig{
			Job:     config.DefaultJobTimeout,
			LongJob: config.DefaultLongJobTimeout,
			Stage:   config.DefaultStageTimeout,
		},
		Tracker: TrackerConfig{
			Backend:       "memory",
			Path:          filepath.Join(dataDir, "jobs.db"),
			RedisAddr:     "localhost:6379",
			Retention:     config.DefaultRetention,
			SweepInterval: config.DefaultSweepInterval,
		},
		Tools: ToolsConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			PythonPath:   "python3",
			EdgeTTSPath:  "edge-tts",
			WhisperModel: config.WhisperDefaultModel,
		},
		Transcription: TranscriptionConfig{
			Provider: config.TranscriberWhisper,
		},
		Translation: TranslationConfig{
			LibreTranslateURL: config.LibreTranslateEndpoint,
			LingvaURL:         config.LingvaEndpoint,
			RequestsPerSecond: config.TranslationRequestsPerSecond,
			Burst:             config.TranslationBurst,
			Timeout:           config.HTTPTimeout,
		},
		TTS: TTSConfig{
			DefaultProvider: config.ProviderGTTS,
			EdgeVoice:       config.DefaultEdgeTTSVoice,
			OpenAIModel:     "tts-1",
			OpenAIVoice:     config.DefaultOpenAIVoice,
		},
		OpenAI: OpenAIConfig{
			BaseURL: config.OpenAIAPIEndpoint,
		},
		Estimates: EstimatesConfig{
			Extract:    config.EstimateExtract,
			Transcribe: config.EstimateTranscribe,
			Translate:  config.EstimateTranslate,
			Synthesize: config.EstimateSynthesize,
			Mux:        config.EstimateMux,
			PerChunk:   config.EstimatePerChunk,
		},
		Log: LogConfig{
			Level: "info",
		},
		MaxCPUOperations: config.MaxConcurrentCPUOperations,
	}
}

// LoadConfig builds the effective configuration. An empty path skips the file layer;
// a path that does not exist is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("DUBBER_ADDR", &c.Server.Addr)
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	str("DUBBER_UPLOAD_DIR", &c.Paths.UploadDir)
	str("DUBBER_OUTPUT_DIR", &c.Paths.OutputDir)
	str("DUBBER_WORK_DIR", &c.Paths.WorkDir)
	num("DUBBER_CHUNK_DURATION", &c.Chunking.ChunkDuration)
	num("DUBBER_LONG_VIDEO_THRESHOLD", &c.Chunking.LongVideoThreshold)
	integer("DUBBER_CHUNK_CONCURRENCY", &c.Chunking.Concurrency)
	boolean("DUBBER_CLEANUP_CHUNKS", &c.Chunking.CleanupChunks)
	dur("DUBBER_JOB_TIMEOUT", &c.Timeouts.Job)
	dur("DUBBER_LONG_JOB_TIMEOUT", &c.Timeouts.LongJob)
	dur("DUBBER_STAGE_TIMEOUT", &c.Timeouts.Stage)
	str("DUBBER_STORE", &c.Tracker.Backend)
	str("DUBBER_STORE_PATH", &c.Tracker.Path)
	str("DUBBER_REDIS_ADDR", &c.Tracker.RedisAddr)
	str("DUBBER_REDIS_PASSWORD", &c.Tracker.RedisPassword)
	str("FFMPEG_PATH", &c.Tools.FFmpegPath)
	str("FFPROBE_PATH", &c.Tools.FFprobePath)
	str("PYTHON_PATH", &c.Tools.PythonPath)
	str("WHISPER_MODEL", &c.Tools.WhisperModel)
	str("DUBBER_TRANSCRIBER", &c.Transcription.Provider)
	str("LIBRETRANSLATE_URL", &c.Translation.LibreTranslateURL)
	str("LIBRETRANSLATE_API_KEY", &c.Translation.LibreTranslateAPIKey)
	str("LINGVA_URL", &c.Translation.LingvaURL)
	str("DUBBER_TTS_PROVIDER", &c.TTS.DefaultProvider)
	str("EDGE_TTS_VOICE", &c.TTS.EdgeVoice)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("DUBBER_LOG_LEVEL", &c.Log.Level)

	return errors.Join(errs...)
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Chunking.ChunkDuration < config.MinChunkDuration || c.Chunking.ChunkDuration > config.MaxChunkDuration {
		errs = append(errs, fmt.Errorf("chunking.chunk_duration must be in [%.0f, %.0f], got %v",
			config.MinChunkDuration, config.MaxChunkDuration, c.Chunking.ChunkDuration))
	}
	if c.Chunking.LongVideoThreshold <= 0 {
		errs = append(errs, fmt.Errorf("chunking.long_video_threshold must be positive"))
	}
	if c.Chunking.Concurrency < 1 || c.Chunking.Concurrency > config.MaxChunkConcurrency {
		errs = append(errs, fmt.Errorf("chunking.concurrency must be in [1, %d], got %d",
			config.MaxChunkConcurrency, c.Chunking.Concurrency))
	}
	if c.Timeouts.Job <= 0 || c.Timeouts.LongJob <= 0 || c.Timeouts.Stage <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be positive"))
	}
	switch strings.ToLower(c.Tracker.Backend) {
	case "memory", "sqlite", "redis", "badger":
	default:
		errs = append(errs, fmt.Errorf("tracker.backend %q is not one of memory, sqlite, redis, badger", c.Tracker.Backend))
	}
	if c.Tracker.Retention <= 0 || c.Tracker.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("tracker.retention and tracker.sweep_interval must be positive"))
	}
	if c.Tracker.Retention <= c.Timeouts.LongJob {
		errs = append(errs, fmt.Errorf("tracker.retention (%v) must exceed timeouts.long_job (%v)", c.Tracker.Retention, c.Timeouts.LongJob))
	}
	switch c.Transcription.Provider {
	case config.TranscriberWhisper, config.TranscriberOpenAI:
	default:
		errs = append(errs, fmt.Errorf("transcription.provider %q is not one of whisper, openai", c.Transcription.Provider))
	}
	if c.Translation.LibreTranslateURL == "" || c.Translation.LingvaURL == "" {
		errs = append(errs, fmt.Errorf("translation endpoints must be set"))
	}
	if c.Translation.RequestsPerSecond <= 0 || c.Translation.Burst < 1 {
		errs = append(errs, fmt.Errorf("translation rate limit must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive"))
	}
	if c.MaxCPUOperations < 1 {
		errs = append(errs, fmt.Errorf("max_cpu_operations must be at least 1"))
	}
	return errors.Join(errs...)
}

// StageEstimates returns the estimate table in stage order.
func (c *Config) StageEstimates() [StageCount]time.Duration {
	e := c.Estimates
	return [StageCount]time.Duration{e.Extract, e.Transcribe, e.Translate, e.Synthesize, e.Mux}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // may hold API keys
}
