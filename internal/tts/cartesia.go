package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
)

const cartesiaVersion = "2024-06-10"

// Cartesia synthesizes speech with Cartesia's bytes endpoint, returning raw
// PCM at the requested sample rate
type Cartesia struct {
	apiKey         string
	apiURL         string
	voiceID        string
	modelID        string
	sampleRate     int
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// CartesiaRequest represents the request payload for the Cartesia TTS API
type CartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        CartesiaVoice        `json:"voice"`
	OutputFormat CartesiaOutputFormat `json:"output_format"`
	Language     string               `json:"language,omitempty"`
}

// CartesiaVoice selects a voice by id
type CartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// CartesiaOutputFormat requests raw PCM
type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// CartesiaConfig configures the Cartesia client
type CartesiaConfig struct {
	APIKey     string
	URL        string
	VoiceID    string
	ModelID    string
	SampleRate int
}

// NewCartesia creates a Cartesia synthesizer
func NewCartesia(cfg CartesiaConfig, breaker *resilience.CircuitBreaker) *Cartesia {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	return &Cartesia{
		apiKey:         cfg.APIKey,
		apiURL:         cfg.URL,
		voiceID:        cfg.VoiceID,
		modelID:        cfg.ModelID,
		sampleRate:     cfg.SampleRate,
		httpClient:     &http.Client{},
		circuitBreaker: breaker,
		logger:         observability.Component("tts.cartesia"),
	}
}

// Name returns the backend identifier
func (c *Cartesia) Name() string { return "cartesia" }

// Synthesize converts text to audio
func (c *Cartesia) Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("cartesia api key not configured")
	}

	var result *Audio
	call := func() error {
		var err error
		result, err = c.do(ctx, text, opts)
		return err
	}

	var err error
	if c.circuitBreaker != nil {
		err = c.circuitBreaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Cartesia) do(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error) {
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = c.voiceID
	}

	reqBody := CartesiaRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      CartesiaVoice{Mode: "id", ID: voiceID},
		OutputFormat: CartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.sampleRate,
		},
		Language: baseLanguage(opts.Language),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("cartesia API returned status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, resilience.NewRetryableError(err)
		}
		return nil, err
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cartesia audio: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}

	c.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("bytes", len(pcm)).
		Str("language", reqBody.Language).
		Msg("Cartesia synthesis complete")

	return &Audio{PCM: pcm[:len(pcm)&^1], SampleRate: c.sampleRate, Channels: 1}, nil
}

// baseLanguage reduces "ro-RO" to "ro"
func baseLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
