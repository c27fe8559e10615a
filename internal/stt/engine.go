package stt

import (
	"fmt"

	"github.com/medvox/voice-command-gateway/internal/config"
	"github.com/medvox/voice-command-gateway/internal/resilience"
)

// Engine names accepted by STREAM_ENGINE
const (
	EngineAuto     = "auto"
	EngineVosk     = "vosk"
	EngineDeepgram = "deepgram"
)

// SelectStreamEngine resolves "auto" to a concrete engine: Vosk when it is
// compiled in and a model is configured, otherwise Deepgram when a key is set
func SelectStreamEngine(engine, voskModelPath, deepgramKey string, voskAvailable bool) (string, error) {
	switch engine {
	case EngineVosk:
		if !voskAvailable {
			return "", fmt.Errorf("stream engine vosk requested but binary built without vosk support")
		}
		if voskModelPath == "" {
			return "", fmt.Errorf("stream engine vosk requires VOSK_MODEL_PATH")
		}
		return EngineVosk, nil
	case EngineDeepgram:
		if deepgramKey == "" {
			return "", fmt.Errorf("stream engine deepgram requires DEEPGRAM_API_KEY")
		}
		return EngineDeepgram, nil
	case EngineAuto, "":
		if voskAvailable && voskModelPath != "" {
			return EngineVosk, nil
		}
		if deepgramKey != "" {
			return EngineDeepgram, nil
		}
		return "", fmt.Errorf("no on-device recognition engine available (set VOSK_MODEL_PATH or DEEPGRAM_API_KEY)")
	default:
		return "", fmt.Errorf("unknown stream engine %q", engine)
	}
}

// NewStreamRecognizer builds the continuous recognizer selected by the config
func NewStreamRecognizer(cfg *config.Config, breaker *resilience.CircuitBreaker) (StreamRecognizer, error) {
	engine, err := SelectStreamEngine(cfg.StreamEngine, cfg.VoskModelPath, cfg.DeepgramAPIKey, VoskAvailable)
	if err != nil {
		return nil, err
	}

	if engine == EngineVosk {
		return NewVosk(cfg.VoskModelPath)
	}
	return NewDeepgramLive(cfg.DeepgramAPIKey, cfg.DeepgramModel, breaker), nil
}

// NewTranscriber builds the remote clip transcriber, or returns nil when
// no transcription provider is configured
func NewTranscriber(cfg *config.Config, breaker *resilience.CircuitBreaker) Transcriber {
	if !cfg.TranscriptionConfigured() {
		return nil
	}

	switch cfg.TranscriptionProvider {
	case "whisper":
		return NewWhisper(cfg.WhisperEndpoint, "", cfg.WhisperModel, breaker)
	default:
		return NewDeepgramBatch(cfg.DeepgramAPIKey, cfg.DeepgramModel, breaker)
	}
}
