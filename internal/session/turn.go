package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/capture"
	"github.com/medvox/voice-command-gateway/internal/dispatch"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

var now = time.Now

// errDiscarded ends a turn whose transcript lacked the wake phrase
var errDiscarded = errors.New("wake phrase missing")

// defaultPhraseBudget bounds the timed-out and apology phrases when no
// synthesis timeout is configured
const defaultPhraseBudget = 5 * time.Second

type turn struct {
	voice.VoiceTurn

	parent   context.Context
	logger   zerolog.Logger
	metrics  *observability.TurnMetrics
	restarts int
}

func (s *Session) run(ctx context.Context, t *turn, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	watchCtx, stopWatch := context.WithTimeoutCause(ctx, s.cfg.TurnTimeout, voice.ErrTimeout)
	err := s.execute(watchCtx, t)
	stopWatch()

	s.finish(t, err)
}

func (s *Session) transition(t *turn, status voice.TurnStatus) {
	t.Status = status
	s.setStatus(status)
}

// execute drives the turn through its stages and returns why it ended
func (s *Session) execute(ctx context.Context, t *turn) error {
	text, err := s.listen(ctx, t)
	if err != nil {
		return err
	}

	if s.wake != nil {
		rest, ok := s.wake.Admit(text)
		if !ok {
			return errDiscarded
		}
		text = rest
	}

	s.transition(t, voice.StatusResolving)
	t.metrics.StageStart(observability.StageResolve)
	intent := s.deps.Resolver.Resolve(text, s.cfg.Language)
	t.metrics.StageEnd(observability.StageResolve)
	t.Intent = &intent
	observability.RecordIntent(string(intent.Kind))
	s.emit(Event{Type: EventIntent, TurnID: t.ID, Intent: &intent})

	t.logger.Info().
		Str("kind", string(intent.Kind)).
		Str("rule", intent.Rule).
		Float64("confidence", intent.Confidence).
		Msg("Intent resolved")

	// a cancel accepted while Transcribing still applies
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	s.transition(t, voice.StatusDispatching)
	t.metrics.StageStart(observability.StageDispatch)
	response, dispatchErr := s.deps.Dispatcher.Dispatch(ctx, dispatch.Command{
		TurnID:   t.ID,
		Language: s.cfg.Language,
		Intent:   intent,
	})
	t.metrics.StageEnd(observability.StageDispatch)
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if dispatchErr != nil && response == "" {
		return dispatchErr
	}
	t.Response = &response
	s.emit(Event{Type: EventResponse, TurnID: t.ID, Response: response})

	s.transition(t, voice.StatusSpeaking)
	t.metrics.StageStart(observability.StageSynthesis)
	err = s.deps.Speaker.Speak(ctx, response)
	t.metrics.StageEnd(observability.StageSynthesis)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}
	return dispatchErr
}

// listen runs capture until a final utterance arrives. A recognition
// failure restarts capture once. The microphone is released on return.
func (s *Session) listen(ctx context.Context, t *turn) (string, error) {
	backend := s.deps.Capture.For(s.cfg)
	if backend == nil {
		return "", fmt.Errorf("%w: no capture backend available", voice.ErrRecognition)
	}

	t.metrics.StageStart(observability.StageCapture)
	defer t.metrics.StageEnd(observability.StageCapture)

	for {
		text, err := s.captureOnce(ctx, t, backend)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}
		if errors.Is(err, voice.ErrRecognition) && t.restarts == 0 {
			t.restarts++
			t.logger.Warn().Err(err).Msg("Recognition failed, restarting capture")
			s.transition(t, voice.StatusListening)
			continue
		}
		return "", err
	}
}

func (s *Session) captureOnce(ctx context.Context, t *turn, backend capture.Backend) (string, error) {
	h, err := backend.Start(ctx, s.cfg)
	if err != nil {
		return "", err
	}
	s.setHandle(h)
	defer func() {
		s.setHandle(nil)
		drain(h)
	}()

	for {
		select {
		case <-ctx.Done():
			return "", context.Cause(ctx)

		case ev, ok := <-h.Events():
			if !ok {
				// capture ended without a final hypothesis; nothing was heard
				return "", nil
			}

			switch ev.Type {
			case capture.EventRecordingClosed:
				s.transition(t, voice.StatusTranscribing)

			case capture.EventUtterance:
				s.emit(Event{Type: EventTranscript, TurnID: t.ID, Utterance: ev.Utterance})
				if ev.Utterance.Final {
					t.Utterance = ev.Utterance
					s.transition(t, voice.StatusTranscribing)
					t.logger.Debug().
						Str("backend", string(ev.Utterance.Backend)).
						Int("text_length", len(ev.Utterance.Text)).
						Msg("Final utterance received")
					return ev.Utterance.Text, nil
				}

			case capture.EventError:
				return "", ev.Err
			}
		}
	}
}

// drain aborts the capture and waits until it released the microphone
func drain(h capture.Handle) {
	h.Abort()
	for range h.Events() {
	}
}

// finish records the outcome, speaks the timed-out or apology phrase when
// the turn failed before Speaking, and returns the session to Idle
func (s *Session) finish(t *turn, err error) {
	outcome := Outcome{
		TurnID:   t.ID,
		Intent:   t.Intent,
		Duration: now().Sub(t.StartedAt),
	}
	if t.Utterance != nil {
		outcome.Transcript = t.Utterance.Text
	}
	if t.Response != nil {
		outcome.Response = *t.Response
	}
	spokeBefore := t.Status >= voice.StatusSpeaking

	terminal := voice.StatusIdle
	switch {
	case err == nil:
		outcome.Result = ResultCompleted

	case errors.Is(err, errDiscarded):
		outcome.Result = ResultDiscarded
		t.logger.Debug().Msg("Wake phrase missing, turn discarded")

	case errors.Is(err, voice.ErrCancelled), errors.Is(err, ErrClosed), errors.Is(err, context.Canceled):
		outcome.Result = ResultCancelled
		outcome.Err = voice.ErrCancelled
		outcome.ErrorCode = voice.Code(voice.ErrCancelled)
		terminal = voice.StatusCancelled

	default:
		outcome.Result = ResultError
		outcome.Err = err
		outcome.ErrorCode = voice.Code(err)
		terminal = voice.StatusError
		observability.RecordError(outcome.ErrorCode, "session")
	}
	t.Err = outcome.Err

	if terminal != voice.StatusIdle {
		s.transition(t, terminal)
	}
	if terminal == voice.StatusError && !spokeBefore && !errors.Is(err, voice.ErrSynthesis) {
		phrase := s.phrases.Apology
		if errors.Is(err, voice.ErrTimeout) {
			phrase = s.phrases.TimedOut
		}
		s.speakBestEffort(t, phrase)
	}

	t.metrics.End(string(outcome.Result))
	event := t.logger.Info()
	if outcome.Err != nil && outcome.Result == ResultError {
		event = t.logger.Warn().Err(outcome.Err)
	}
	event.
		Str("result", string(outcome.Result)).
		Str("error_code", outcome.ErrorCode).
		Dur("duration", outcome.Duration).
		Msg("Turn finished")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &outcome
	s.setStatusLocked(voice.StatusIdle)
	s.emitLocked(Event{Type: EventTurnEnd, TurnID: t.ID, Outcome: &outcome})
	s.cancelTurn(nil)
	s.handle = nil
	s.active = false
}

// speakBestEffort speaks a fixed phrase with its own budget; failures are
// only logged
func (s *Session) speakBestEffort(t *turn, phrase string) {
	if t.parent.Err() != nil {
		return
	}
	budget := s.cfg.SynthesisTimeout
	if budget <= 0 {
		budget = defaultPhraseBudget
	}
	ctx, cancel := context.WithTimeout(t.parent, budget)
	defer cancel()

	if err := s.deps.Speaker.Speak(ctx, phrase); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to speak failure phrase")
	}
}
