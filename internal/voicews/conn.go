package voicews

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medvox/voice-command-gateway/internal/audio"
	"github.com/medvox/voice-command-gateway/internal/capture"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/tts"
)

const writeTimeout = 5 * time.Second

// wsWriter serializes writes; gorilla connections allow one concurrent writer
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(v)
}

func (w *wsWriter) writeBinary(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (w *wsWriter) close(code int, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

var errConnClosed = errors.New("connection closed")

// connMicrophone is the client's microphone: binary frames received on the
// connection are delivered to the open stream, if any, and dropped
// otherwise
type connMicrophone struct {
	rate int

	mu      sync.Mutex
	current *connStream
	closed  bool
}

func newConnMicrophone(rate int) *connMicrophone {
	return &connMicrophone{rate: rate}
}

func (m *connMicrophone) SampleRate() int { return m.rate }

func (m *connMicrophone) Open(ctx context.Context) (capture.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errConnClosed
	}
	if m.current != nil {
		m.current.closeLocked()
	}
	m.current = &connStream{mic: m, frames: make(chan []byte, 64)}
	return m.current, nil
}

// push delivers one frame without blocking the connection reader
func (m *connMicrophone) push(pcm []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	select {
	case m.current.frames <- pcm:
		observability.RecordAudioBytes("in", len(pcm))
	default:
	}
}

// shutdown ends the open stream and rejects further opens
func (m *connMicrophone) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.current != nil {
		m.current.closeLocked()
	}
}

type connStream struct {
	mic    *connMicrophone
	frames chan []byte
	done   bool
}

func (s *connStream) Frames() <-chan []byte { return s.frames }

func (s *connStream) Close() error {
	s.mic.mu.Lock()
	defer s.mic.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *connStream) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.frames)
	if s.mic.current == s {
		s.mic.current = nil
	}
}

// connPlayer plays synthesized audio by streaming it to the client in
// 20ms binary frames between audio_start and audio_end. Play returns once
// the audio's duration has elapsed so the session stays in Speaking for
// the length of the playback.
type connPlayer struct {
	w        *wsWriter
	rate     int
	encoding string
}

func (p *connPlayer) Play(ctx context.Context, a *tts.Audio) error {
	pcm := a.PCM
	if a.SampleRate != p.rate {
		pcm = audio.ResamplePCM(pcm, a.SampleRate, p.rate)
	}

	payload := pcm
	frame := p.rate / 50 * 2
	if p.encoding == EncodingMulaw {
		var err error
		if payload, err = audio.EncodeMulaw(pcm); err != nil {
			return err
		}
		frame = p.rate / 50
	}

	if err := p.w.writeJSON(Message{Type: MessageAudioStart, SampleRate: p.rate, Encoding: p.encoding}); err != nil {
		return err
	}

	start := time.Now()
	for off := 0; off < len(payload); off += frame {
		if ctx.Err() != nil {
			_ = p.w.writeJSON(Message{Type: MessageAudioEnd, Message: "interrupted"})
			return ctx.Err()
		}
		end := min(off+frame, len(payload))
		if err := p.w.writeBinary(payload[off:end]); err != nil {
			return err
		}
	}

	timer := time.NewTimer(time.Until(start.Add(a.Duration())))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		_ = p.w.writeJSON(Message{Type: MessageAudioEnd, Message: "interrupted"})
		return ctx.Err()
	}

	return p.w.writeJSON(Message{Type: MessageAudioEnd})
}
