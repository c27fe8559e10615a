package config

import (
	"os"
	"testing"
	"time"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

func TestLoad(t *testing.T) {
	// Set provider environment variables
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("CARTESIA_API_KEY", "test-cartesia-key")
	os.Setenv("CARTESIA_VOICE_ID", "test-voice")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("CARTESIA_API_KEY")
	defer os.Unsetenv("CARTESIA_VOICE_ID")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}

	if cfg.CartesiaAPIKey != "test-cartesia-key" {
		t.Errorf("Expected CartesiaAPIKey 'test-cartesia-key', got '%s'", cfg.CartesiaAPIKey)
	}
}

func TestLoad_NoCredentials(t *testing.T) {
	// Remote providers are optional; the gateway falls back to local backends
	os.Unsetenv("DEEPGRAM_API_KEY")
	os.Unsetenv("CARTESIA_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	p := cfg.Provider()
	if p.RemoteTranscriptionConfigured {
		t.Error("Expected remote transcription to be unconfigured")
	}
	if p.RemoteSynthesisConfigured {
		t.Error("Expected remote synthesis to be unconfigured")
	}
}

func TestLoad_CartesiaRequiresVoice(t *testing.T) {
	os.Setenv("CARTESIA_API_KEY", "test-cartesia-key")
	os.Unsetenv("CARTESIA_VOICE_ID")
	defer os.Unsetenv("CARTESIA_API_KEY")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error when CARTESIA_VOICE_ID is missing")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"capture backend", "CAPTURE_BACKEND", "cloud"},
		{"synthesis backend", "SYNTHESIS_BACKEND", "espeak"},
		{"sensitivity", "MIC_SENSITIVITY", "1.5"},
		{"stream engine", "STREAM_ENGINE", "kaldi"},
		{"transcription provider", "TRANSCRIPTION_PROVIDER", "google"},
		{"turn timeout", "TURN_TIMEOUT_MS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(tt.key, tt.value)
			defer os.Unsetenv(tt.key)

			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.CaptureBackend != "on-device" {
		t.Errorf("Expected default CaptureBackend 'on-device', got '%s'", cfg.CaptureBackend)
	}

	if cfg.SynthesisBackend != "remote" {
		t.Errorf("Expected default SynthesisBackend 'remote', got '%s'", cfg.SynthesisBackend)
	}

	if cfg.Language != "ro-RO" {
		t.Errorf("Expected default Language 'ro-RO', got '%s'", cfg.Language)
	}

	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}

	if cfg.ExecutorAddr != "localhost:50051" {
		t.Errorf("Expected default ExecutorAddr 'localhost:50051', got '%s'", cfg.ExecutorAddr)
	}

	if cfg.RecordingCapMs != 10000 {
		t.Errorf("Expected default RecordingCapMs 10000, got %d", cfg.RecordingCapMs)
	}

	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}
}

func TestConfig_Provider(t *testing.T) {
	os.Setenv("WAKEWORD_ENABLED", "true")
	os.Setenv("WAKEWORD_PHRASES", " asistent , ,doctor ")
	os.Setenv("TURN_TIMEOUT_MS", "2500")
	os.Setenv("CAPTURE_BACKEND", "remote")
	os.Setenv("TRANSCRIPTION_PROVIDER", "whisper")
	os.Setenv("WHISPER_ENDPOINT", "http://localhost:9000")
	defer os.Unsetenv("WAKEWORD_ENABLED")
	defer os.Unsetenv("WAKEWORD_PHRASES")
	defer os.Unsetenv("TURN_TIMEOUT_MS")
	defer os.Unsetenv("CAPTURE_BACKEND")
	defer os.Unsetenv("TRANSCRIPTION_PROVIDER")
	defer os.Unsetenv("WHISPER_ENDPOINT")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	p := cfg.Provider()
	if p.PreferredCapture != voice.CaptureRemote {
		t.Errorf("Expected remote capture, got %s", p.PreferredCapture)
	}
	if len(p.WakewordPhrases) != 2 || p.WakewordPhrases[0] != "asistent" || p.WakewordPhrases[1] != "doctor" {
		t.Errorf("Unexpected wake phrases: %q", p.WakewordPhrases)
	}
	if p.TurnTimeout != 2500*time.Millisecond {
		t.Errorf("Expected TurnTimeout 2.5s, got %v", p.TurnTimeout)
	}
	if !p.RemoteTranscriptionConfigured {
		t.Error("Expected whisper endpoint to count as configured transcription")
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	// Check resilience defaults
	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.RetryMaxAttempts != 2 {
		t.Errorf("Expected default RetryMaxAttempts 2, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.RetryInitialBackoff != 100 {
		t.Errorf("Expected default RetryInitialBackoff 100, got %d", cfg.RetryInitialBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	// Clear LOG_LEVEL to ensure we get the default
	os.Unsetenv("LOG_LEVEL")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}
