package tts

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock implements Synthesizer for testing. Behaviour is customized via
// SynthesizeFunc; calls are recorded.
type Mock struct {
	// Label is returned by Name; defaults to "mock"
	Label string

	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns 20ms of silence per character at 16kHz.
	SynthesizeFunc func(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// NewMock creates a mock synthesizer with the given name
func NewMock(name string) *Mock {
	return &Mock{Label: name}
}

// NewFailingMock creates a mock synthesizer that always fails
func NewFailingMock(name string) *Mock {
	return &Mock{
		Label: name,
		SynthesizeFunc: func(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error) {
			return nil, fmt.Errorf("%s unavailable", name)
		},
	}
}

// Name returns Label
func (m *Mock) Name() string {
	if m.Label == "" {
		return "mock"
	}
	return m.Label
}

// Synthesize calls SynthesizeFunc and records the call
func (m *Mock) Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error) {
	m.record("Synthesize", text)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, opts)
	}
	return &Audio{PCM: make([]byte, len(text)*640), SampleRate: 16000, Channels: 1}, nil
}

// Calls returns a copy of the recorded calls
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns the number of recorded calls
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *Mock) record(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Time: time.Now()})
}

// MockPlayer implements Player for testing. Played audio is recorded.
type MockPlayer struct {
	// PlayFunc is called when Play is invoked. If nil, Play returns at once.
	PlayFunc func(ctx context.Context, audio *Audio) error

	mu     sync.Mutex
	played []*Audio
}

// Play records audio and calls PlayFunc
func (p *MockPlayer) Play(ctx context.Context, audio *Audio) error {
	p.mu.Lock()
	p.played = append(p.played, audio)
	p.mu.Unlock()
	if p.PlayFunc != nil {
		return p.PlayFunc(ctx, audio)
	}
	return nil
}

// Played returns the audio passed to Play so far
func (p *MockPlayer) Played() []*Audio {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Audio(nil), p.played...)
}
