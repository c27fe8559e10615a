//go:build vosk

package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// VoskAvailable reports whether the binary was built with the vosk tag
const VoskAvailable = true

// Vosk is an on-device continuous recognizer. The model is loaded once and
// shared; each session gets its own recognizer.
type Vosk struct {
	mu     sync.Mutex
	model  *vosk.VoskModel
	logger zerolog.Logger
}

// voskResult covers both Result/FinalResult and PartialResult JSON
type voskResult struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// NewVosk loads the model at modelPath
func NewVosk(modelPath string) (*Vosk, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: vosk model not found: %s", voice.ErrRecognition, modelPath)
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading vosk model: %v", voice.ErrRecognition, err)
	}

	return &Vosk{
		model:  model,
		logger: observability.Component("stt.vosk"),
	}, nil
}

// Name returns the engine identifier
func (v *Vosk) Name() string { return "vosk" }

// Open creates a recognizer for one capture
func (v *Vosk) Open(ctx context.Context, opts StreamOptions) (StreamSession, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.model == nil {
		return nil, fmt.Errorf("%w: vosk model closed", voice.ErrRecognition)
	}
	rec, err := vosk.NewRecognizer(v.model, float64(opts.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("%w: creating vosk recognizer: %v", voice.ErrRecognition, err)
	}

	v.logger.Debug().Int("sample_rate", opts.SampleRate).Msg("Vosk session started")
	return &voskStream{rec: rec, stream: newResultStream(32)}, nil
}

// Close frees the model
func (v *Vosk) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

type voskStream struct {
	mu     sync.Mutex
	rec    *vosk.VoskRecognizer
	stream *resultStream
}

func (s *voskStream) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return fmt.Errorf("%w: stream finished", voice.ErrRecognition)
	}

	switch s.rec.AcceptWaveform(pcm) {
	case 1:
		// end of utterance detected by the engine
		s.stream.segment(parseVosk(s.rec.Result()).Text, 0, true)
	case 0:
		if partial := parseVosk(s.rec.PartialResult()).Partial; partial != "" {
			s.stream.interimText(partial, 0)
		}
	default:
		err := fmt.Errorf("%w: vosk rejected audio", voice.ErrRecognition)
		s.stream.fail(err)
		return err
	}
	observability.RecordAudioBytes("in", len(pcm))
	return nil
}

func (s *voskStream) Results() <-chan TranscriptionResult {
	return s.stream.results()
}

func (s *voskStream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return nil
	}
	s.stream.segment(parseVosk(s.rec.FinalResult()).Text, 0, true)
	s.stream.flush()
	s.rec.Free()
	s.rec = nil
	s.stream.close()
	return nil
}

func (s *voskStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec != nil {
		s.rec.Free()
		s.rec = nil
	}
	s.stream.close()
	return nil
}

func (s *voskStream) Err() error {
	return s.stream.failure()
}

func parseVosk(raw string) voskResult {
	var r voskResult
	_ = json.Unmarshal([]byte(raw), &r)
	return r
}
