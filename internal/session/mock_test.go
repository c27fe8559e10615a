package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/medvox/voice-command-gateway/internal/capture"
	"github.com/medvox/voice-command-gateway/internal/dispatch"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// fakeHandle is a capture driven by a test script
type fakeHandle struct {
	events    chan capture.Event
	stop      chan struct{}
	abort     chan struct{}
	stopOnce  sync.Once
	abortOnce sync.Once
}

func (h *fakeHandle) Events() <-chan capture.Event { return h.events }
func (h *fakeHandle) Stop()                        { h.stopOnce.Do(func() { close(h.stop) }) }
func (h *fakeHandle) Abort()                       { h.abortOnce.Do(func() { close(h.abort) }) }

func (h *fakeHandle) send(ev capture.Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.abort:
		return false
	}
}

func (h *fakeHandle) say(text string, final bool) bool {
	return h.send(capture.Event{Type: capture.EventUtterance, Utterance: &voice.Utterance{
		Text:       text,
		Final:      final,
		Backend:    voice.CaptureOnDevice,
		ReceivedAt: time.Now(),
	}})
}

// fakeBackend runs script once per Start. The microphone counts as held
// until the script returned and the events channel is closed.
type fakeBackend struct {
	script   func(n int, h *fakeHandle)
	startErr error

	mu     sync.Mutex
	starts int
	held   int
}

func (b *fakeBackend) Mode() voice.CaptureMode { return voice.CaptureOnDevice }

func (b *fakeBackend) Start(ctx context.Context, cfg voice.ProviderConfig) (capture.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return nil, b.startErr
	}
	n := b.starts
	b.starts++
	b.held++

	h := &fakeHandle{
		events: make(chan capture.Event, 16),
		stop:   make(chan struct{}),
		abort:  make(chan struct{}),
	}
	go func() {
		b.script(n, h)
		b.mu.Lock()
		b.held--
		b.mu.Unlock()
		close(h.events)
	}()
	return h, nil
}

func (b *fakeBackend) state() (starts, held int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts, b.held
}

// For implements Capture
func (b *fakeBackend) For(voice.ProviderConfig) capture.Backend { return b }

// sayFinal emits an interim and a final hypothesis, then waits for abort
func sayFinal(text string) func(int, *fakeHandle) {
	return func(_ int, h *fakeHandle) {
		if h.say(text[:len(text)/2], false) && h.say(text, true) {
			<-h.abort
		}
	}
}

func hang(_ int, h *fakeHandle) { <-h.abort }

type fakeDispatcher struct {
	DispatchFunc func(ctx context.Context, cmd dispatch.Command) (string, error)

	mu   sync.Mutex
	cmds []dispatch.Command
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, cmd dispatch.Command) (string, error) {
	d.mu.Lock()
	d.cmds = append(d.cmds, cmd)
	d.mu.Unlock()
	if d.DispatchFunc != nil {
		return d.DispatchFunc(ctx, cmd)
	}
	return "Gata.", nil
}

func (d *fakeDispatcher) commands() []dispatch.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatch.Command(nil), d.cmds...)
}

type fakeSpeaker struct {
	SpeakFunc func(ctx context.Context, text string) error

	mu     sync.Mutex
	spoken []string
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	if s.SpeakFunc != nil {
		return s.SpeakFunc(ctx, text)
	}
	return nil
}

func (s *fakeSpeaker) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func testConfig() voice.ProviderConfig {
	return voice.ProviderConfig{
		PreferredCapture:   voice.CaptureOnDevice,
		PreferredSynthesis: voice.SynthesisLocal,
		Language:           "ro-RO",
		MicSensitivity:     0.5,
		CaptureTimeout:     time.Second,
		SynthesisTimeout:   time.Second,
		TurnTimeout:        2 * time.Second,
		RecordingCap:       5 * time.Second,
	}
}

func newTestSession(t *testing.T, cfg voice.ProviderConfig, deps Deps) *Session {
	t.Helper()
	s, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// turnEnd reads events until the next turn_end and returns the statuses
// seen on the way
func turnEnd(t *testing.T, s *Session) ([]voice.TurnStatus, []Event, Outcome) {
	t.Helper()
	var statuses []voice.TurnStatus
	var events []Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatal("events closed before turn end")
			}
			events = append(events, ev)
			switch ev.Type {
			case EventStatus:
				statuses = append(statuses, ev.Status)
			case EventTurnEnd:
				return statuses, events, *ev.Outcome
			}
		case <-timeout:
			t.Fatalf("timed out waiting for turn end, statuses %v", statuses)
		}
	}
}

// eventually polls cond until it holds or a second passes
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
