//go:build !vosk

package stt

import (
	"context"
	"fmt"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// VoskAvailable reports whether the binary was built with the vosk tag
const VoskAvailable = false

var errVoskNotBuilt = fmt.Errorf("%w: built without vosk support (rebuild with -tags vosk)", voice.ErrRecognition)

// Vosk is unavailable in builds without cgo and the vosk tag
type Vosk struct{}

// NewVosk always fails in this build
func NewVosk(modelPath string) (*Vosk, error) {
	return nil, errVoskNotBuilt
}

// Name returns the engine identifier
func (v *Vosk) Name() string { return "vosk" }

// Open always fails in this build
func (v *Vosk) Open(ctx context.Context, opts StreamOptions) (StreamSession, error) {
	return nil, errVoskNotBuilt
}

// Close is a no-op
func (v *Vosk) Close() error { return nil }
