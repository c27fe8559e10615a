// Package session runs voice turns: capture, intent resolution, command
// dispatch and spoken response, one turn at a time, with a turn watchdog
// and caller cancellation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/capture"
	"github.com/medvox/voice-command-gateway/internal/dispatch"
	"github.com/medvox/voice-command-gateway/internal/nlu"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

var (
	// ErrClosed is returned by Start after Close
	ErrClosed = errors.New("session closed")

	// ErrNotListening is returned by StopListening outside Listening
	ErrNotListening = errors.New("not listening")
)

// Capture picks the capture backend for a turn
type Capture interface {
	For(cfg voice.ProviderConfig) capture.Backend
}

// Dispatcher turns a resolved intent into response text
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd dispatch.Command) (string, error)
}

// Speaker synthesizes and plays text, blocking until playback ends
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Deps are the collaborators of a session
type Deps struct {
	Capture    Capture
	Resolver   *nlu.Resolver
	Dispatcher Dispatcher
	Speaker    Speaker
}

// Session is the turn state machine of one client. Its methods are safe
// for concurrent use; the turn itself runs on its own goroutine, which is
// the only place the VoiceTurn is touched.
type Session struct {
	id       string
	cfg      voice.ProviderConfig
	deps     Deps
	wake     *nlu.WakeGate
	phrases  dispatch.Phrases
	logger   zerolog.Logger
	events   chan Event
	turnDone chan struct{}

	mu         sync.Mutex
	status     voice.TurnStatus
	turnID     string
	active     bool
	closed     bool
	cancelTurn context.CancelCauseFunc
	handle     capture.Handle
	last       *Outcome
	wg         sync.WaitGroup
}

// New creates an idle session
func New(cfg voice.ProviderConfig, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	if deps.Capture == nil || deps.Dispatcher == nil || deps.Speaker == nil {
		return nil, fmt.Errorf("session requires capture, dispatcher and speaker")
	}
	if deps.Resolver == nil {
		deps.Resolver = nlu.NewResolver(nil)
	}

	id := uuid.New().String()
	s := &Session{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		phrases: dispatch.PhrasesFor(cfg.Language),
		logger:  observability.Component("session").With().Str("session_id", id).Logger(),
		events:  make(chan Event, 128),
		status:  voice.StatusIdle,
	}
	if cfg.WakewordEnabled {
		s.wake = nlu.NewWakeGate(cfg.WakewordPhrases)
	}
	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Events delivers status changes, transcripts, intents, responses and turn
// ends. It is closed by Close. Events are dropped when the reader falls
// more than the buffer behind.
func (s *Session) Events() <-chan Event { return s.events }

// Status returns the current turn status
func (s *Session) Status() voice.TurnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastOutcome returns the outcome of the most recent finished turn
func (s *Session) LastOutcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// Start begins a turn and returns its id. ctx bounds the whole turn. It
// fails with voice.ErrBusy unless the session is Idle with the previous
// turn fully cleaned up.
func (s *Session) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	if s.active || s.status != voice.StatusIdle {
		return "", voice.ErrBusy
	}

	turnCtx, cancel := context.WithCancelCause(ctx)
	t := &turn{
		VoiceTurn: voice.VoiceTurn{
			ID:        uuid.New().String(),
			StartedAt: now(),
		},
		parent: ctx,
	}
	t.logger = s.logger.With().Str("turn_id", t.ID).Logger()
	t.metrics = observability.NewTurnMetrics(t.ID)

	s.active = true
	s.turnID = t.ID
	s.cancelTurn = cancel
	s.turnDone = make(chan struct{})
	s.setStatusLocked(voice.StatusListening)
	t.Status = voice.StatusListening

	s.wg.Add(1)
	go s.run(turnCtx, t, s.turnDone)

	t.logger.Info().Str("language", s.cfg.Language).Msg("Turn started")
	return t.ID, nil
}

// StopListening ends capture gracefully; the remote backend uploads what
// was recorded and the on-device backend flushes its final hypothesis
func (s *Session) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != voice.StatusListening || s.handle == nil {
		return ErrNotListening
	}
	s.handle.Stop()
	return nil
}

// Cancel aborts the turn while it is Listening or Transcribing. Nothing is
// spoken and the microphone is released before the session is Idle again.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != voice.StatusListening && s.status != voice.StatusTranscribing {
		return voice.ErrNotCancellable
	}
	s.cancelTurn(voice.ErrCancelled)
	return nil
}

// Wait blocks until the current turn, if any, has finished and the
// session is Idle
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.turnDone
	active := s.active
	s.mu.Unlock()

	if !active || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts any running turn, waits for it to clean up and closes Events
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancelTurn != nil {
		s.cancelTurn(ErrClosed)
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
	return nil
}

func (s *Session) setStatus(status voice.TurnStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(status)
}

func (s *Session) setStatusLocked(status voice.TurnStatus) {
	if s.status == status {
		return
	}
	s.status = status
	s.emitLocked(Event{Type: EventStatus, TurnID: s.turnID, Status: status})
}

func (s *Session) setHandle(h capture.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(ev)
}

func (s *Session) emitLocked(ev Event) {
	if s.closed && !s.active {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Str("type", string(ev.Type)).Msg("Event dropped, reader too slow")
	}
}
