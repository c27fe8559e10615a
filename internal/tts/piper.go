package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/observability"
)

// defaultPiperVoices maps languages to Piper voice model names
var defaultPiperVoices = map[string]string{
	"ro": "ro_RO-mihai-medium",
	"en": "en_US-lessac-medium",
}

// Piper synthesizes speech with a local Piper server over the Wyoming
// protocol. Each event on the wire is
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>
type Piper struct {
	endpoint string
	voice    string
	dialer   net.Dialer
	logger   zerolog.Logger
}

// NewPiper creates a Piper synthesizer. voice overrides the per-language
// default when set.
func NewPiper(endpoint, voice string) *Piper {
	endpoint = strings.TrimPrefix(endpoint, "tcp://")
	return &Piper{
		endpoint: endpoint,
		voice:    voice,
		dialer:   net.Dialer{Timeout: 5 * time.Second},
		logger:   observability.Component("tts.piper"),
	}
}

// Name returns the backend identifier
func (p *Piper) Name() string { return "piper" }

// Ping dials the server; used by the readiness check
func (p *Piper) Ping(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.endpoint)
	if err != nil {
		return fmt.Errorf("connecting to piper: %w", err)
	}
	return conn.Close()
}

// Synthesize sends one synthesize event and collects the audio chunks
func (p *Piper) Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	voiceName := p.voiceFor(opts)

	conn, err := p.dialer.DialContext(ctx, "tcp", p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	// unblock reads when ctx is cancelled without a deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	err = writeWyomingEvent(conn, wyomingEvent{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voiceName},
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	var (
		pcm        bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
		r          = bufio.NewReader(conn)
	)
	for {
		evt, payload, err := readWyomingEvent(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				channels = int(ch)
			}
			if w, ok := evt.Data["width"].(float64); ok {
				width = int(w)
			}
			if width != 2 {
				return nil, fmt.Errorf("unsupported piper sample width %d", width)
			}

		case "audio-chunk":
			pcm.Write(payload)

		case "audio-stop":
			if pcm.Len() == 0 {
				return nil, fmt.Errorf("piper returned empty audio")
			}
			p.logger.Debug().
				Str("voice", voiceName).
				Int("rate", sampleRate).
				Int("bytes", pcm.Len()).
				Msg("Piper synthesis complete")
			return &Audio{PCM: pcm.Bytes(), SampleRate: sampleRate, Channels: channels}, nil

		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		}
	}
}

func (p *Piper) voiceFor(opts SynthesizeOpts) string {
	if opts.Voice != "" {
		return opts.Voice
	}
	if p.voice != "" {
		return p.voice
	}
	if v, ok := defaultPiperVoices[baseLanguage(opts.Language)]; ok {
		return v
	}
	return defaultPiperVoices["ro"]
}

type wyomingEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeWyomingEvent(w io.Writer, evt wyomingEvent, payload []byte) error {
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(jsonBytes), len(payload))
	buf.Write(jsonBytes)
	buf.WriteByte('\n')
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

func readWyomingEvent(r *bufio.Reader) (*wyomingEvent, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	jsonField, payloadField, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(jsonField)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(payloadField))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	// json plus its trailing newline
	jsonBuf := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt wyomingEvent
	if err := json.Unmarshal(jsonBuf[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}
