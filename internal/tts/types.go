// Package tts turns response text into played-back speech through a remote
// provider with a local fallback.
package tts

import (
	"context"
	"time"
)

// Audio is synthesized speech as little-endian PCM16
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration of the audio
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	samples := len(a.PCM) / (2 * a.Channels)
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// SynthesizeOpts controls voice selection
type SynthesizeOpts struct {
	// Language is a BCP 47 locale such as "ro-RO"
	Language string

	// Voice overrides the backend's language-based voice selection
	Voice string
}

// Synthesizer converts text to audio with a single backend
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*Audio, error)
	Name() string
}

// Player renders audio. Play blocks until playback finished or ctx ended.
type Player interface {
	Play(ctx context.Context, audio *Audio) error
}
