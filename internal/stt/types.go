// Package stt holds the speech-to-text engines behind the capture backends:
// continuous recognizers for on-device capture and one-shot transcribers
// for recorded clips.
package stt

import (
	"context"
)

// TranscriptionResult is one hypothesis from a continuous recognizer
type TranscriptionResult struct {
	// Text is the transcribed text
	Text string

	// IsFinal indicates the recognizer will not revise Text
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64
}

// StreamOptions configures a continuous recognition session
type StreamOptions struct {
	// Language is a BCP 47 locale such as "ro-RO"
	Language string

	// SampleRate of the PCM16 mono audio written to the session
	SampleRate int
}

// StreamRecognizer opens continuous recognition sessions
type StreamRecognizer interface {
	Open(ctx context.Context, opts StreamOptions) (StreamSession, error)
	Name() string
}

// StreamSession is one open recognition stream. Engine failures are reported
// wrapped in voice.ErrRecognition.
type StreamSession interface {
	// Write feeds PCM16 mono audio
	Write(pcm []byte) error

	// Results delivers interim and final hypotheses. The channel is closed
	// once the session has ended.
	Results() <-chan TranscriptionResult

	// Finish stops accepting audio and asks the engine to flush its final
	// hypothesis onto Results before the channel closes
	Finish() error

	// Close aborts the session, discarding pending hypotheses
	Close() error

	// Err returns the engine failure that ended the session, if any.
	// It is meaningful once Results is closed.
	Err() error
}

// Clip is a bounded recording uploaded for one-shot transcription
type Clip struct {
	// PCM is little-endian PCM16 mono audio
	PCM        []byte
	SampleRate int
	Language   string
}

// Transcriber turns a recorded clip into text with one remote call.
// Failures are reported wrapped in voice.ErrTranscription.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
	Name() string
}
