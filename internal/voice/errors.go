package voice

import (
	"context"
	"errors"
)

// Error taxonomy. Adapters wrap provider failures with one of these so that
// callers can use errors.Is without knowing which provider failed.
var (
	// ErrMicrophoneUnavailable is fatal to the turn; no retry.
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")

	// ErrTranscription is a remote transcription failure; one retry is allowed.
	ErrTranscription = errors.New("transcription failed")

	// ErrRecognition is an on-device engine failure; recoverable by restarting capture.
	ErrRecognition = errors.New("recognition failed")

	// ErrSynthesis is returned only after every synthesis backend failed.
	ErrSynthesis = errors.New("synthesis failed")

	// ErrBusy rejects a concurrent start or speak; it is not a turn failure.
	ErrBusy = errors.New("busy")

	// ErrTimeout is fatal to the turn, not to the session.
	ErrTimeout = errors.New("turn timed out")

	// ErrCancelled marks a caller-initiated abort.
	ErrCancelled = errors.New("turn cancelled")

	// ErrExecution wraps a failure reported by the command executor.
	ErrExecution = errors.New("command execution failed")

	// ErrNotCancellable is returned by cancel outside Listening/Transcribing.
	ErrNotCancellable = errors.New("turn is not cancellable in its current state")
)

// Code maps an error to a stable identifier clients can display
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMicrophoneUnavailable):
		return "microphone_unavailable"
	case errors.Is(err, ErrTranscription):
		return "transcription_error"
	case errors.Is(err, ErrRecognition):
		return "recognition_error"
	case errors.Is(err, ErrSynthesis):
		return "synthesis_error"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrExecution):
		return "execution_error"
	case errors.Is(err, ErrNotCancellable):
		return "not_cancellable"
	default:
		return "internal_error"
	}
}

// Recoverable reports whether a retry or backend fallback may succeed
func Recoverable(err error) bool {
	return errors.Is(err, ErrTranscription) || errors.Is(err, ErrRecognition)
}
