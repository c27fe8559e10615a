package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Config holds all configuration for the voice command gateway
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Pipeline configuration
	CaptureBackend     string   `envconfig:"CAPTURE_BACKEND" default:"on-device"` // on-device, remote
	SynthesisBackend   string   `envconfig:"SYNTHESIS_BACKEND" default:"remote"`  // remote, local
	Language           string   `envconfig:"LANGUAGE" default:"ro-RO"`
	WakewordEnabled    bool     `envconfig:"WAKEWORD_ENABLED" default:"false"`
	WakewordPhrases    []string `envconfig:"WAKEWORD_PHRASES" default:"asistent,hey asistent"`
	MicSensitivity     float64  `envconfig:"MIC_SENSITIVITY" default:"0.5"`
	CaptureTimeoutMs   int      `envconfig:"CAPTURE_TIMEOUT_MS" default:"8000"`   // remote transcription call budget
	SynthesisTimeoutMs int      `envconfig:"SYNTHESIS_TIMEOUT_MS" default:"6000"` // per synthesis backend attempt
	TurnTimeoutMs      int      `envconfig:"TURN_TIMEOUT_MS" default:"15000"`     // watchdog, Listening to Idle
	RecordingCapMs     int      `envconfig:"RECORDING_CAP_MS" default:"10000"`    // remote mode recording window

	// Continuous recognition engine for on-device capture
	StreamEngine  string `envconfig:"STREAM_ENGINE" default:"auto"` // auto, vosk, deepgram
	VoskModelPath string `envconfig:"VOSK_MODEL_PATH" default:""`

	// Remote transcription
	TranscriptionProvider string `envconfig:"TRANSCRIPTION_PROVIDER" default:"deepgram"` // deepgram, whisper
	DeepgramAPIKey        string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel         string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	WhisperEndpoint       string `envconfig:"WHISPER_ENDPOINT" default:""`
	WhisperModel          string `envconfig:"WHISPER_MODEL" default:"whisper-1"`

	// Cartesia TTS (remote synthesis)
	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaVoiceID string `envconfig:"CARTESIA_VOICE_ID" default:""`
	CartesiaModelID string `envconfig:"CARTESIA_MODEL_ID" default:"sonic-multilingual"`
	CartesiaURL     string `envconfig:"CARTESIA_URL" default:"https://api.cartesia.ai/tts/bytes"`

	// Piper TTS over Wyoming (local synthesis)
	PiperEndpoint string `envconfig:"PIPER_ENDPOINT" default:"localhost:10200"`
	PiperVoice    string `envconfig:"PIPER_VOICE" default:""`

	// Command executor gRPC endpoint
	ExecutorAddr       string `envconfig:"EXECUTOR_ADDR" default:"localhost:50051"`
	ExecutorTLSEnabled bool   `envconfig:"EXECUTOR_TLS_ENABLED" default:"false"`
	ExecutorTimeoutMs  int    `envconfig:"EXECUTOR_TIMEOUT_MS" default:"5000"`

	// Optional YAML file with extra pattern rules
	CatalogFile string `envconfig:"CATALOG_FILE" default:""`

	// Audio
	SampleRate int `envconfig:"SAMPLE_RATE" default:"16000"` // microphone and playback PCM rate

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"2"`             // Attempts per remote call, first included
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerations, ranges and provider requirements
func (c *Config) Validate() error {
	if err := c.Provider().Validate(); err != nil {
		return err
	}

	switch c.StreamEngine {
	case "auto", "vosk", "deepgram":
	default:
		return fmt.Errorf("STREAM_ENGINE must be auto, vosk or deepgram, got %q", c.StreamEngine)
	}

	switch c.TranscriptionProvider {
	case "deepgram", "whisper":
	default:
		return fmt.Errorf("TRANSCRIPTION_PROVIDER must be deepgram or whisper, got %q", c.TranscriptionProvider)
	}

	if c.CartesiaAPIKey != "" && c.CartesiaVoiceID == "" {
		return fmt.Errorf("CARTESIA_VOICE_ID is required when CARTESIA_API_KEY is set")
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive")
	}

	return nil
}

// TranscriptionConfigured reports whether the selected remote transcription
// provider has what it needs to be called
func (c *Config) TranscriptionConfigured() bool {
	switch c.TranscriptionProvider {
	case "whisper":
		return c.WhisperEndpoint != ""
	default:
		return c.DeepgramAPIKey != ""
	}
}

// Provider derives the immutable per-session provider configuration
func (c *Config) Provider() voice.ProviderConfig {
	phrases := make([]string, 0, len(c.WakewordPhrases))
	for _, p := range c.WakewordPhrases {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}

	return voice.ProviderConfig{
		PreferredCapture:              voice.CaptureMode(c.CaptureBackend),
		PreferredSynthesis:            voice.SynthesisMode(c.SynthesisBackend),
		Language:                      c.Language,
		WakewordEnabled:               c.WakewordEnabled,
		WakewordPhrases:               phrases,
		MicSensitivity:                c.MicSensitivity,
		CaptureTimeout:                time.Duration(c.CaptureTimeoutMs) * time.Millisecond,
		SynthesisTimeout:              time.Duration(c.SynthesisTimeoutMs) * time.Millisecond,
		TurnTimeout:                   time.Duration(c.TurnTimeoutMs) * time.Millisecond,
		RecordingCap:                  time.Duration(c.RecordingCapMs) * time.Millisecond,
		RemoteTranscriptionConfigured: c.TranscriptionConfigured(),
		RemoteSynthesisConfigured:     c.CartesiaAPIKey != "",
	}
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
