package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/medvox/voice-command-gateway/internal/audio"
	"github.com/medvox/voice-command-gateway/internal/stt"
)

// fakeMic delivers whatever the test writes to frames
type fakeMic struct {
	rate    int
	frames  chan []byte
	openErr error

	mu     sync.Mutex
	opens  int
	closes int
}

func newFakeMic() *fakeMic {
	return &fakeMic{rate: 16000, frames: make(chan []byte, 256)}
}

func (m *fakeMic) Open(ctx context.Context) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opens++
	return &fakeStream{mic: m}, nil
}

func (m *fakeMic) SampleRate() int { return m.rate }

func (m *fakeMic) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

type fakeStream struct {
	mic *fakeMic
}

func (s *fakeStream) Frames() <-chan []byte { return s.mic.frames }

func (s *fakeStream) Close() error {
	s.mic.mu.Lock()
	defer s.mic.mu.Unlock()
	s.mic.closes++
	return nil
}

// fakeRecognizer hands out fakeSessions
type fakeRecognizer struct {
	openErr  error
	finalize string

	mu       sync.Mutex
	sessions []*fakeSession
}

func (r *fakeRecognizer) Name() string { return "fake" }

func (r *fakeRecognizer) Open(ctx context.Context, opts stt.StreamOptions) (stt.StreamSession, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	s := &fakeSession{
		results:  make(chan stt.TranscriptionResult, 16),
		finalize: r.finalize,
	}
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
	return s, nil
}

func (r *fakeRecognizer) session(t *testing.T) *fakeSession {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		t.Fatal("no recognition session opened")
	}
	return r.sessions[len(r.sessions)-1]
}

type fakeSession struct {
	results  chan stt.TranscriptionResult
	finalize string

	mu       sync.Mutex
	closed   bool
	err      error
	written  int
	finished bool
}

func (s *fakeSession) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written += len(pcm)
	return nil
}

func (s *fakeSession) state() (written int, finished, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written, s.finished, s.closed
}

func (s *fakeSession) Results() <-chan stt.TranscriptionResult { return s.results }

func (s *fakeSession) push(res stt.TranscriptionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.results <- res
	}
}

func (s *fakeSession) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.closeLocked()
}

func (s *fakeSession) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	if s.finalize != "" && !s.closed {
		s.results <- stt.TranscriptionResult{Text: s.finalize, IsFinal: true}
	}
	s.closeLocked()
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *fakeSession) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.results)
	}
}

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fakeTranscriber calls TranscribeFunc and records the clips it received
type fakeTranscriber struct {
	TranscribeFunc func(ctx context.Context, clip stt.Clip) (string, error)

	mu    sync.Mutex
	clips []stt.Clip
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, clip stt.Clip) (string, error) {
	f.mu.Lock()
	f.clips = append(f.clips, clip)
	f.mu.Unlock()
	return f.TranscribeFunc(ctx, clip)
}

func (f *fakeTranscriber) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clips)
}

// collect reads events until the channel closes
func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("events not closed, got %+v", out)
			return nil
		}
	}
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("events closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func frame(amplitude int16, samples int) []byte {
	s := make([]int16, samples)
	for i := range s {
		if i%2 == 0 {
			s[i] = amplitude
		} else {
			s[i] = -amplitude
		}
	}
	return audio.SamplesToBytes(s)
}
