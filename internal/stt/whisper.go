package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/medvox/voice-command-gateway/internal/audio"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Whisper transcribes recorded clips with any OpenAI-compatible
// /v1/audio/transcriptions endpoint (whisper.cpp server, faster-whisper)
type Whisper struct {
	endpoint       string
	apiKey         string
	model          string
	client         *http.Client
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewWhisper creates a Whisper-compatible transcriber
func NewWhisper(endpoint, apiKey, model string, breaker *resilience.CircuitBreaker) *Whisper {
	return &Whisper{
		endpoint:       endpoint,
		apiKey:         apiKey,
		model:          model,
		client:         &http.Client{},
		circuitBreaker: breaker,
		logger:         observability.Component("stt.whisper"),
	}
}

// Name returns the provider identifier
func (w *Whisper) Name() string { return "whisper" }

// Transcribe posts the clip as a WAV form file
func (w *Whisper) Transcribe(ctx context.Context, clip Clip) (string, error) {
	if len(clip.PCM) == 0 {
		return "", fmt.Errorf("%w: empty recording", voice.ErrTranscription)
	}

	var text string
	call := func() error {
		var err error
		text, err = w.do(ctx, clip)
		return err
	}

	var err error
	if w.circuitBreaker != nil {
		err = w.circuitBreaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", fmt.Errorf("%w: whisper: %w", voice.ErrTranscription, err)
	}
	return text, nil
}

func (w *Whisper) do(ctx context.Context, clip Clip) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(clip.PCM, clip.SampleRate)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if w.model != "" {
		_ = writer.WriteField("model", w.model)
	}
	if lang := baseLanguage(clip.Language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", resilience.NewRetryableError(err)
		}
		return "", err
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	w.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("text_length", len(text)).
		Msg("Whisper transcription complete")
	return text, nil
}

// baseLanguage reduces "ro-RO" to "ro"; Whisper expects ISO-639-1
func baseLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
