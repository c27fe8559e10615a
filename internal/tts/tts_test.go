package tts

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

func testProvider() voice.ProviderConfig {
	return voice.ProviderConfig{
		PreferredCapture:          voice.CaptureOnDevice,
		PreferredSynthesis:        voice.SynthesisRemote,
		Language:                  "ro-RO",
		SynthesisTimeout:          time.Second,
		TurnTimeout:               5 * time.Second,
		RemoteSynthesisConfigured: true,
	}
}

func TestCartesia_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("X-API-Key"))
		}
		if r.Header.Get("Cartesia-Version") == "" {
			t.Error("Expected Cartesia-Version header")
		}

		var req CartesiaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Transcript != "Programare confirmată" || req.Voice.ID != "voice-1" || req.Language != "ro" {
			t.Errorf("Unexpected request: %+v", req)
		}
		if req.OutputFormat.Encoding != "pcm_s16le" || req.OutputFormat.SampleRate != 16000 {
			t.Errorf("Unexpected output format: %+v", req.OutputFormat)
		}
		_, _ = w.Write(make([]byte, 3201))
	}))
	defer server.Close()

	c := NewCartesia(CartesiaConfig{
		APIKey:  "test-key",
		URL:     server.URL,
		VoiceID: "voice-1",
		ModelID: "sonic-multilingual",
	}, nil)

	audio, err := c.Synthesize(context.Background(), "Programare confirmată", SynthesizeOpts{Language: "ro-RO"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio.PCM) != 3200 || audio.SampleRate != 16000 || audio.Channels != 1 {
		t.Errorf("Unexpected audio: %d bytes, %d Hz, %d ch", len(audio.PCM), audio.SampleRate, audio.Channels)
	}
	if audio.Duration() != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", audio.Duration())
	}
}

func TestCartesia_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := resilience.NewCircuitBreaker("cartesia", 2, time.Minute)
	c := NewCartesia(CartesiaConfig{APIKey: "k", URL: server.URL, VoiceID: "v"}, breaker)

	for i := 0; i < 2; i++ {
		_, err := c.Synthesize(context.Background(), "salut", SynthesizeOpts{})
		if !resilience.IsRetryable(err) {
			t.Errorf("Expected retryable error, got %v", err)
		}
	}

	_, err := c.Synthesize(context.Background(), "salut", SynthesizeOpts{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected open circuit, got %v", err)
	}

	noKey := NewCartesia(CartesiaConfig{URL: server.URL}, nil)
	if _, err := noKey.Synthesize(context.Background(), "salut", SynthesizeOpts{}); err == nil {
		t.Error("Expected error without api key")
	}
}

// startWyoming serves one connection with handle
func startWyoming(t *testing.T, handle func(evt *wyomingEvent, conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readWyomingEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		handle(evt, conn)
	}()
	return ln.Addr().String()
}

func TestPiper_Synthesize(t *testing.T) {
	received := make(chan *wyomingEvent, 1)
	addr := startWyoming(t, func(evt *wyomingEvent, conn net.Conn) {
		received <- evt
		_ = writeWyomingEvent(conn, wyomingEvent{Type: "audio-start", Data: map[string]any{"rate": 22050, "width": 2, "channels": 1}}, nil)
		_ = writeWyomingEvent(conn, wyomingEvent{Type: "audio-chunk"}, make([]byte, 1000))
		_ = writeWyomingEvent(conn, wyomingEvent{Type: "audio-chunk"}, make([]byte, 500))
		_ = writeWyomingEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	})

	p := NewPiper("tcp://"+addr, "")
	audio, err := p.Synthesize(context.Background(), "Nu am înțeles", SynthesizeOpts{Language: "ro-RO"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio.PCM) != 1500 || audio.SampleRate != 22050 {
		t.Errorf("Unexpected audio: %d bytes at %d Hz", len(audio.PCM), audio.SampleRate)
	}

	evt := <-received
	if evt.Type != "synthesize" || evt.Data["text"] != "Nu am înțeles" {
		t.Errorf("Unexpected event: %+v", evt)
	}
	voiceData, _ := evt.Data["voice"].(map[string]any)
	if voiceData["name"] != "ro_RO-mihai-medium" {
		t.Errorf("Expected Romanian voice, got %v", voiceData["name"])
	}
}

func TestPiper_ServerError(t *testing.T) {
	addr := startWyoming(t, func(evt *wyomingEvent, conn net.Conn) {
		_ = writeWyomingEvent(conn, wyomingEvent{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	_, err := NewPiper(addr, "missing").Synthesize(context.Background(), "salut", SynthesizeOpts{})
	if err == nil || err.Error() != "piper error: voice not found" {
		t.Errorf("Expected piper error, got %v", err)
	}
}

func TestPiper_Unreachable(t *testing.T) {
	ln, _ := net.Listen("tcp", "127.0.0.1:0")
	addr := ln.Addr().String()
	ln.Close()

	p := NewPiper(addr, "")
	if err := p.Ping(context.Background()); err == nil {
		t.Error("Expected ping error")
	}
	if _, err := p.Synthesize(context.Background(), "salut", SynthesizeOpts{}); err == nil {
		t.Error("Expected dial error")
	}
}

func TestSpeaker_RemoteFirst(t *testing.T) {
	remote := NewMock("cartesia")
	local := NewMock("piper")
	player := &MockPlayer{}

	s := NewSpeaker(testProvider(), remote, local, player)
	if err := s.Speak(context.Background(), "Programare confirmată"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if remote.CallCount() != 1 || local.CallCount() != 0 {
		t.Errorf("Expected remote only, got remote=%d local=%d", remote.CallCount(), local.CallCount())
	}
	if len(player.Played()) != 1 {
		t.Errorf("Expected one playback, got %d", len(player.Played()))
	}
}

func TestSpeaker_FallbackToLocal(t *testing.T) {
	remote := NewFailingMock("cartesia")
	local := NewMock("piper")
	player := &MockPlayer{}

	s := NewSpeaker(testProvider(), remote, local, player)
	if err := s.Speak(context.Background(), "Nu am înțeles, vă rog repetați"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if remote.CallCount() != 1 || local.CallCount() != 1 {
		t.Errorf("Expected both backends tried, got remote=%d local=%d", remote.CallCount(), local.CallCount())
	}
	if len(player.Played()) != 1 {
		t.Errorf("Expected one playback, got %d", len(player.Played()))
	}
}

func TestSpeaker_AllFail(t *testing.T) {
	player := &MockPlayer{}
	s := NewSpeaker(testProvider(), NewFailingMock("cartesia"), NewFailingMock("piper"), player)

	err := s.Speak(context.Background(), "salut")
	if !errors.Is(err, voice.ErrSynthesis) {
		t.Fatalf("Expected ErrSynthesis, got %v", err)
	}
	if len(player.Played()) != 0 {
		t.Error("Nothing must be played")
	}
	if s.Speaking() {
		t.Error("Speaker must be free after failure")
	}
}

func TestSpeaker_BackendOrder(t *testing.T) {
	tests := []struct {
		name       string
		preferred  voice.SynthesisMode
		configured bool
		want       []string
	}{
		{"remote configured", voice.SynthesisRemote, true, []string{"cartesia", "piper"}},
		{"remote without credentials", voice.SynthesisRemote, false, []string{"piper"}},
		{"local preferred", voice.SynthesisLocal, true, []string{"piper"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testProvider()
			cfg.PreferredSynthesis = tt.preferred
			cfg.RemoteSynthesisConfigured = tt.configured

			got := NewSpeaker(cfg, NewMock("cartesia"), NewMock("piper"), &MockPlayer{}).Backends()
			if len(got) != len(tt.want) {
				t.Fatalf("Backends() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Backends() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSpeaker_Busy(t *testing.T) {
	playing := make(chan struct{})
	release := make(chan struct{})
	player := &MockPlayer{PlayFunc: func(ctx context.Context, audio *Audio) error {
		close(playing)
		<-release
		return nil
	}}
	s := NewSpeaker(testProvider(), NewMock("cartesia"), nil, player)

	done := make(chan error, 1)
	go func() { done <- s.Speak(context.Background(), "prima") }()
	<-playing

	if err := s.Speak(context.Background(), "a doua"); !errors.Is(err, voice.ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("First Speak() error = %v", err)
	}
	if len(player.Played()) != 1 {
		t.Errorf("Expected one playback, got %d", len(player.Played()))
	}
}

func TestSpeaker_SynthesisTimeout(t *testing.T) {
	slow := &Mock{Label: "cartesia", SynthesizeFunc: func(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	local := NewMock("piper")

	cfg := testProvider()
	cfg.SynthesisTimeout = 20 * time.Millisecond
	s := NewSpeaker(cfg, slow, local, &MockPlayer{})

	if err := s.Speak(context.Background(), "salut"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if local.CallCount() != 1 {
		t.Error("Expected fallback after remote timeout")
	}
}

func TestSpeaker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	player := &MockPlayer{PlayFunc: func(ctx context.Context, audio *Audio) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}}
	s := NewSpeaker(testProvider(), NewMock("cartesia"), nil, player)

	err := s.Speak(ctx, "salut")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, voice.ErrSynthesis) {
		t.Error("Cancellation must not be reported as a synthesis failure")
	}
}
