// Package config provides centralized constants for the video-dubber application.
package config

import "time"

// Progress boundaries for a single (non-chunked) video, 0-100%.
// ProgressStageN is reported when stage N starts; ProgressDone after the mux finishes.
const (
	ProgressExtract    = 20
	ProgressTranscribe = 40
	ProgressTranslate  = 60
	ProgressSynthesize = 80
	ProgressMux        = 90
	ProgressDone       = 100
)

// Long video handling
const (
	DefaultChunkDuration      = 600.0 // seconds per chunk (10 minutes)
	DefaultLongVideoThreshold = 600.0 // videos longer than this are chunked
	DefaultChunkConcurrency   = 1     // chunks run one at a time unless configured
	MaxChunkConcurrency       = 4     // external API quota guard
	MinChunkDuration          = 1.0
	MaxChunkDuration          = 86400.0
)

// Global resource limits (across all jobs)
const (
	// MaxConcurrentCPUOperations limits concurrent ffmpeg processes across every job.
	MaxConcurrentCPUOperations = 4
)

// Timeouts
const (
	DefaultJobTimeout     = 10 * time.Minute
	DefaultLongJobTimeout = 3 * time.Hour
	DefaultStageTimeout   = 10 * time.Minute
)

// Job retention. Jobs are dropped once their start time is older than the
// retention window, whatever their status, so it must outlast DefaultLongJobTimeout.
const (
	DefaultRetention     = 4 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Initial time estimates per stage, used before any stage has finished.
const (
	EstimateExtract    = 30 * time.Second
	EstimateTranscribe = 2 * time.Minute
	EstimateTranslate  = 20 * time.Second
	EstimateSynthesize = time.Minute
	EstimateMux        = 30 * time.Second

	// EstimatePerChunk is the flat estimate for one 10-minute chunk.
	EstimatePerChunk = 8 * time.Minute
)

// HTTP client settings
const (
	HTTPTimeout             = 2 * time.Minute
	HTTPMaxIdleConns        = 10
	HTTPMaxIdleConnsPerHost = 10
	HTTPIdleConnTimeout     = 90 * time.Second
)

// Outbound translation request pacing
const (
	TranslationRequestsPerSecond = 2.0
	TranslationBurst             = 2
)

// Upload settings
const (
	DefaultMaxUploadBytes  = 500 << 20
	DefaultUploadRateLimit = 10 // uploads per minute per IP
)

// Audio settings
const (
	AudioSampleRate16k = 16000 // Whisper requirement
	DubbedAudioBitrate = "192k"
)

// Whisper model defaults
const (
	WhisperDefaultModel = "base"
)

// API endpoints
const (
	LibreTranslateEndpoint = "https://libretranslate.de"
	LingvaEndpoint         = "https://lingva.ml/api/v1"
	OpenAIAPIEndpoint      = "https://api.openai.com/v1"
)

// Default TTS voices
const (
	DefaultEdgeTTSVoice = "en-US-AriaNeural"
	DefaultOpenAIVoice  = "alloy"
)

// OpenAI speech limits
const (
	OpenAITTSMaxInput = 4096 // characters per request
	OpenAITTSWorkers  = 2
)

// Default languages
const (
	DefaultTargetLang = "en"
)

// Provider names
const (
	ProviderGTTS    = "gtts"
	ProviderEdgeTTS = "edge-tts"
	ProviderOpenAI  = "openai"

	TranscriberWhisper = "whisper"
	TranscriberOpenAI  = "openai"
)
