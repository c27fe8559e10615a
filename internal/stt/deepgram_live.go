package stt

import (
	"context"
	"fmt"
	"sync"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// messageCallbackHandler implements the LiveMessageCallback interface
// It embeds the default handler and overrides only the methods we need to customize
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	errorHandler func(*msginterfaces.ErrorResponse)
}

// Message forwards transcription results to the stream
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// Error reports provider errors to the stream
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	m.errorHandler(errorResponse)
	return nil
}

// DeepgramLive is a continuous recognizer over Deepgram's streaming API.
// It serves on-device capture when no local engine is compiled in.
type DeepgramLive struct {
	apiKey         string
	model          string
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewDeepgramLive creates a Deepgram streaming recognizer
func NewDeepgramLive(apiKey, model string, breaker *resilience.CircuitBreaker) *DeepgramLive {
	return &DeepgramLive{
		apiKey:         apiKey,
		model:          model,
		circuitBreaker: breaker,
		logger:         observability.Component("stt.deepgram_live"),
	}
}

// Name returns the engine identifier
func (d *DeepgramLive) Name() string { return "deepgram-live" }

// Open starts a new Deepgram streaming transcription session
func (d *DeepgramLive) Open(ctx context.Context, opts StreamOptions) (StreamSession, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("%w: deepgram api key not configured", voice.ErrRecognition)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &deepgramStream{
		stream: newResultStream(32),
		cancel: cancel,
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.model,
		Language:       opts.Language,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     opts.SampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                s.handleMessage,
		errorHandler: func(errorResponse *msginterfaces.ErrorResponse) {
			d.logger.Error().Interface("error", errorResponse).Msg("Deepgram stream error")
			if d.circuitBreaker != nil {
				d.circuitBreaker.RecordResult(false)
			}
			s.stream.fail(fmt.Errorf("%w: deepgram: %+v", voice.ErrRecognition, errorResponse))
		},
	}

	connect := func() error {
		client, err := listenClient.NewWSUsingCallback(sessCtx, d.apiKey, &interfaces.ClientOptions{}, tOptions, callback)
		if err != nil {
			return fmt.Errorf("failed to create Deepgram client: %w", err)
		}
		if !client.Connect() {
			return fmt.Errorf("failed to connect to Deepgram")
		}
		s.client = client
		return nil
	}

	var err error
	if d.circuitBreaker != nil {
		err = d.circuitBreaker.Call(connect)
	} else {
		err = connect()
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", voice.ErrRecognition, err)
	}

	d.logger.Debug().
		Str("model", d.model).
		Str("language", opts.Language).
		Int("sample_rate", opts.SampleRate).
		Msg("Deepgram streaming session started")
	return s, nil
}

type deepgramStream struct {
	client *listenClient.WSCallback
	stream *resultStream
	cancel context.CancelFunc

	mu       sync.Mutex
	finished bool
}

// handleMessage turns Deepgram results into interim and final hypotheses
func (s *deepgramStream) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return
	}

	alt := msg.Channel.Alternatives[0]
	if msg.IsFinal {
		s.stream.segment(alt.Transcript, alt.Confidence, msg.SpeechFinal)
		return
	}
	if alt.Transcript != "" {
		s.stream.interimText(alt.Transcript, alt.Confidence)
	}
}

func (s *deepgramStream) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return fmt.Errorf("%w: stream finished", voice.ErrRecognition)
	}
	if err := s.stream.failure(); err != nil {
		return err
	}
	if _, err := s.client.Write(pcm); err != nil {
		return fmt.Errorf("%w: failed to send audio to Deepgram: %v", voice.ErrRecognition, err)
	}
	observability.RecordAudioBytes("in", len(pcm))
	return nil
}

func (s *deepgramStream) Results() <-chan TranscriptionResult {
	return s.stream.results()
}

func (s *deepgramStream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil
	}
	s.finished = true

	s.stream.flush()
	s.client.Finish()
	s.cancel()
	s.stream.close()
	return nil
}

func (s *deepgramStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finished {
		s.finished = true
		s.client.Finish()
	}
	s.cancel()
	s.stream.close()
	return nil
}

func (s *deepgramStream) Err() error {
	return s.stream.failure()
}
