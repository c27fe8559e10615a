// Package capture turns microphone audio into utterances, either by
// continuous on-device recognition or by recording a bounded clip and
// uploading it for remote transcription.
package capture

import (
	"context"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// EventType discriminates capture events
type EventType int

const (
	// EventUtterance carries interim or final recognized text
	EventUtterance EventType = iota
	// EventRecordingClosed marks the end of recording; the remote upload begins
	EventRecordingClosed
	// EventError carries a failure wrapped in a voice sentinel error
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventUtterance:
		return "utterance"
	case EventRecordingClosed:
		return "recording_closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted on Handle.Events
type Event struct {
	Type      EventType
	Utterance *voice.Utterance
	Err       error
}

// Handle is one running capture
type Handle interface {
	// Events is closed after the capture ended and the microphone was released
	Events() <-chan Event

	// Stop ends the capture gracefully: the recognizer flushes its final
	// hypothesis, or the recording is closed and uploaded
	Stop()

	// Abort ends the capture immediately; no further utterances are emitted
	Abort()
}

// Backend starts captures
type Backend interface {
	Start(ctx context.Context, cfg voice.ProviderConfig) (Handle, error)
	Mode() voice.CaptureMode
}

// SelectMode picks the capture backend for a turn. Remote capture is used
// only when it is preferred and a transcription provider is configured.
func SelectMode(cfg voice.ProviderConfig) voice.CaptureMode {
	if cfg.PreferredCapture == voice.CaptureRemote && cfg.RemoteTranscriptionConfigured {
		return voice.CaptureRemote
	}
	return voice.CaptureOnDevice
}

// Selector chooses between the configured backends per turn
type Selector struct {
	OnDevice Backend
	Remote   Backend
}

// For returns the backend SelectMode picks, falling back to on-device
// when no remote backend was built
func (s *Selector) For(cfg voice.ProviderConfig) Backend {
	if SelectMode(cfg) == voice.CaptureRemote && s.Remote != nil {
		return s.Remote
	}
	return s.OnDevice
}
