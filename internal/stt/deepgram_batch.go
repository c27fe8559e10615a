package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/audio"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// prerecordedClient is the part of the Deepgram REST client used here
type prerecordedClient interface {
	DoStream(ctx context.Context, src io.Reader, options *interfaces.PreRecordedTranscriptionOptions, resBody interface{}) error
}

// prerecordedResponse holds the fields read from Deepgram's pre-recorded
// transcription response
type prerecordedResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// DeepgramBatch transcribes recorded clips with Deepgram's pre-recorded API
type DeepgramBatch struct {
	client         prerecordedClient
	model          string
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewDeepgramBatch creates a Deepgram pre-recorded transcriber
func NewDeepgramBatch(apiKey, model string, breaker *resilience.CircuitBreaker) *DeepgramBatch {
	return newDeepgramBatch(listenClient.NewREST(apiKey, &interfaces.ClientOptions{}), model, breaker)
}

func newDeepgramBatch(client prerecordedClient, model string, breaker *resilience.CircuitBreaker) *DeepgramBatch {
	return &DeepgramBatch{
		client:         client,
		model:          model,
		circuitBreaker: breaker,
		logger:         observability.Component("stt.deepgram_batch"),
	}
}

// Name returns the provider identifier
func (d *DeepgramBatch) Name() string { return "deepgram" }

// Transcribe uploads the clip as WAV and returns the best transcript
func (d *DeepgramBatch) Transcribe(ctx context.Context, clip Clip) (string, error) {
	if len(clip.PCM) == 0 {
		return "", fmt.Errorf("%w: empty recording", voice.ErrTranscription)
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Language:    clip.Language,
		Punctuate:   true,
		SmartFormat: true,
	}

	start := time.Now()
	var res prerecordedResponse
	call := func() error {
		wav := audio.EncodeWAV(clip.PCM, clip.SampleRate)
		return d.client.DoStream(ctx, bytes.NewReader(wav), options, &res)
	}

	var err error
	if d.circuitBreaker != nil {
		err = d.circuitBreaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", fmt.Errorf("%w: deepgram: %w", voice.ErrTranscription, err)
	}

	text := ""
	if len(res.Results.Channels) > 0 && len(res.Results.Channels[0].Alternatives) > 0 {
		text = strings.TrimSpace(res.Results.Channels[0].Alternatives[0].Transcript)
	}

	d.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("text_length", len(text)).
		Str("language", clip.Language).
		Msg("Deepgram transcription complete")
	return text, nil
}
