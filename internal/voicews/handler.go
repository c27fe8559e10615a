// Package voicews is the websocket transport of the gateway. A client
// streams microphone audio as binary frames, drives turns with JSON control
// messages and receives session events and synthesized audio.
package voicews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/audio"
	"github.com/medvox/voice-command-gateway/internal/capture"
	"github.com/medvox/voice-command-gateway/internal/nlu"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/session"
	"github.com/medvox/voice-command-gateway/internal/stt"
	"github.com/medvox/voice-command-gateway/internal/tts"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Microphone rate the pipeline works at; mulaw clients send 8kHz
const (
	pipelineRate = 16000
	mulawRate    = 8000
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Deps are shared by every connection. Transcriber, RemoteSynth and
// LocalSynth may be nil.
type Deps struct {
	Provider    voice.ProviderConfig
	Recognizer  stt.StreamRecognizer
	Transcriber stt.Transcriber
	Retry       *resilience.RetryConfig
	Resolver    *nlu.Resolver
	Dispatcher  session.Dispatcher
	RemoteSynth tts.Synthesizer
	LocalSynth  tts.Synthesizer
}

// Handler serves /voice. Each connection gets its own microphone, speaker
// and session.
type Handler struct {
	deps   Deps
	logger zerolog.Logger
	active sync.WaitGroup

	// base is cancelled by Shutdown and closes every connection
	base     context.Context
	shutdown context.CancelFunc
}

// NewHandler creates the websocket handler
func NewHandler(deps Deps) *Handler {
	base, shutdown := context.WithCancel(context.Background())
	return &Handler{
		deps:     deps,
		logger:   observability.Component("voicews"),
		base:     base,
		shutdown: shutdown,
	}
}

// Shutdown closes every connection and waits until their sessions have
// been torn down or ctx is done
func (h *Handler) Shutdown(ctx context.Context) error {
	h.shutdown()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	encoding := r.URL.Query().Get("encoding")
	switch encoding {
	case "", EncodingPCM16:
		encoding = EncodingPCM16
	case EncodingMulaw:
	default:
		http.Error(w, fmt.Sprintf("unsupported encoding %q", encoding), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer ws.Close()

	h.active.Add(1)
	defer h.active.Done()

	c, err := h.newConnection(ws, encoding)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create session")
		c.w.close(websocket.CloseInternalServerErr, "session unavailable")
		return
	}
	c.serve(h.base)
}

type connection struct {
	w        *wsWriter
	ws       *websocket.Conn
	mic      *connMicrophone
	sess     *session.Session
	encoding string
	logger   zerolog.Logger
}

func (h *Handler) newConnection(ws *websocket.Conn, encoding string) (*connection, error) {
	c := &connection{
		w:        &wsWriter{conn: ws},
		ws:       ws,
		mic:      newConnMicrophone(pipelineRate),
		encoding: encoding,
	}

	device := capture.NewDevice(c.mic)
	selector := &capture.Selector{OnDevice: capture.NewOnDevice(device, h.deps.Recognizer)}
	if h.deps.Transcriber != nil {
		selector.Remote = capture.NewRemote(device, h.deps.Transcriber, h.deps.Retry)
	}

	clientRate := pipelineRate
	if encoding == EncodingMulaw {
		clientRate = mulawRate
	}
	player := &connPlayer{w: c.w, rate: clientRate, encoding: encoding}

	sess, err := session.New(h.deps.Provider, session.Deps{
		Capture:    selector,
		Resolver:   h.deps.Resolver,
		Dispatcher: h.deps.Dispatcher,
		Speaker:    tts.NewSpeaker(h.deps.Provider, h.deps.RemoteSynth, h.deps.LocalSynth, player),
	})
	if err != nil {
		return c, err
	}
	c.sess = sess
	c.logger = h.logger.With().Str("session_id", sess.ID()).Logger()
	return c, nil
}

// serve forwards session events and reads client frames until the client
// goes away, then tears the session down
func (c *connection) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.logger.Info().Str("encoding", c.encoding).Msg("Voice client connected")

	stopClosing := context.AfterFunc(ctx, func() {
		c.w.close(websocket.CloseGoingAway, "server shutting down")
		_ = c.ws.Close()
	})
	defer stopClosing()

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range c.sess.Events() {
			if err := c.w.writeJSON(fromEvent(ev)); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to write event")
			}
		}
	}()

	c.read(ctx)

	c.mic.shutdown()
	cancel()
	_ = c.sess.Close()
	<-forwarded

	c.logger.Info().Msg("Voice client disconnected")
}

func (c *connection) read(ctx context.Context) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			c.mic.push(c.decode(data))
		case websocket.TextMessage:
			c.control(ctx, data)
		}
	}
}

// decode converts a client frame to 16kHz PCM16
func (c *connection) decode(data []byte) []byte {
	if c.encoding == EncodingMulaw {
		return audio.ResamplePCM(audio.DecodeMulaw(data), mulawRate, pipelineRate)
	}
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	return data
}

func (c *connection) control(ctx context.Context, data []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.send(Message{Type: MessageError, Code: "bad_request", Message: "invalid control message"})
		return
	}

	var err error
	switch msg.Type {
	case ControlStart:
		_, err = c.sess.Start(ctx)
	case ControlStop:
		err = c.sess.StopListening()
	case ControlCancel:
		err = c.sess.Cancel()
	default:
		c.send(Message{Type: MessageError, Code: "bad_request", Message: fmt.Sprintf("unknown control %q", msg.Type)})
		return
	}
	if err == nil {
		return
	}

	c.logger.Debug().Err(err).Str("control", msg.Type).Msg("Control rejected")
	if errors.Is(err, session.ErrNotListening) {
		c.send(Message{Type: MessageError, Code: "not_listening", Message: err.Error()})
		return
	}
	c.send(errorMessage(err))
}

func (c *connection) send(msg Message) {
	if err := c.w.writeJSON(msg); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write message")
	}
}
