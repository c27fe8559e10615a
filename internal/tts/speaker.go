package tts

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Speaker synthesizes text with an ordered list of backends and plays the
// first result. Only one Speak runs at a time; a concurrent call is
// rejected with voice.ErrBusy.
type Speaker struct {
	backends []Synthesizer
	player   Player
	language string
	timeout  time.Duration
	logger   zerolog.Logger

	busy atomic.Bool
}

// NewSpeaker orders the backends for cfg: remote first when it is preferred
// and configured, local always last. Either backend may be nil.
func NewSpeaker(cfg voice.ProviderConfig, remote, local Synthesizer, player Player) *Speaker {
	var backends []Synthesizer
	if remote != nil && cfg.PreferredSynthesis == voice.SynthesisRemote && cfg.RemoteSynthesisConfigured {
		backends = append(backends, remote)
	}
	if local != nil {
		backends = append(backends, local)
	}

	return &Speaker{
		backends: backends,
		player:   player,
		language: cfg.Language,
		timeout:  cfg.SynthesisTimeout,
		logger:   observability.Component("tts.speaker"),
	}
}

// Backends returns the backend names in fallback order
func (s *Speaker) Backends() []string {
	names := make([]string, len(s.backends))
	for i, b := range s.backends {
		names[i] = b.Name()
	}
	return names
}

// Speak synthesizes text and blocks until playback finished. It fails with
// voice.ErrSynthesis when every backend failed and voice.ErrBusy when
// another Speak is in progress.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return voice.ErrBusy
	}
	defer s.busy.Store(false)

	audio, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}

	if err := s.player.Play(ctx, audio); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: playback: %w", voice.ErrSynthesis, err)
	}
	observability.RecordAudioBytes("out", len(audio.PCM))
	return nil
}

// Speaking reports whether a Speak call is in progress
func (s *Speaker) Speaking() bool {
	return s.busy.Load()
}

func (s *Speaker) synthesize(ctx context.Context, text string) (*Audio, error) {
	if len(s.backends) == 0 {
		return nil, fmt.Errorf("%w: no synthesis backend configured", voice.ErrSynthesis)
	}

	opts := SynthesizeOpts{Language: s.language}
	var errs []error
	for i, backend := range s.backends {
		audio, err := s.attempt(ctx, backend, text, opts)
		if err == nil {
			observability.RecordSynthesis(backend.Name(), true)
			if i > 0 {
				s.logger.Info().Str("backend", backend.Name()).Msg("Fallback synthesis backend succeeded")
			}
			return audio, nil
		}

		observability.RecordSynthesis(backend.Name(), false)
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i < len(s.backends)-1 {
			observability.RecordSynthesisFallback()
			s.logger.Warn().Err(err).Str("backend", backend.Name()).Msg("Synthesis backend failed, trying next")
		}
	}

	s.logger.Error().Err(errors.Join(errs...)).Msg("All synthesis backends failed")
	return nil, fmt.Errorf("%w: %w", voice.ErrSynthesis, errors.Join(errs...))
}

func (s *Speaker) attempt(ctx context.Context, backend Synthesizer, text string, opts SynthesizeOpts) (*Audio, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return backend.Synthesize(ctx, text, opts)
}
