package voice

import (
	"fmt"
	"strings"
	"time"
)

// ProviderConfig is the operator-supplied configuration of one session.
// It is derived once from the service configuration and never mutated.
type ProviderConfig struct {
	PreferredCapture   CaptureMode
	PreferredSynthesis SynthesisMode

	// Language is a BCP 47 locale such as "ro-RO"
	Language string

	WakewordEnabled bool
	WakewordPhrases []string

	// MicSensitivity in [0,1]; higher values accept quieter speech
	MicSensitivity float64

	CaptureTimeout   time.Duration
	SynthesisTimeout time.Duration
	TurnTimeout      time.Duration
	RecordingCap     time.Duration

	// Credentials present for the remote providers
	RemoteTranscriptionConfigured bool
	RemoteSynthesisConfigured     bool
}

// Validate checks ranges and enumerations
func (c ProviderConfig) Validate() error {
	switch c.PreferredCapture {
	case CaptureOnDevice, CaptureRemote:
	default:
		return fmt.Errorf("invalid capture backend %q", c.PreferredCapture)
	}
	switch c.PreferredSynthesis {
	case SynthesisRemote, SynthesisLocal:
	default:
		return fmt.Errorf("invalid synthesis backend %q", c.PreferredSynthesis)
	}
	if c.MicSensitivity < 0 || c.MicSensitivity > 1 {
		return fmt.Errorf("mic sensitivity %.2f out of range [0,1]", c.MicSensitivity)
	}
	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("language is required")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("turn timeout must be positive")
	}
	if c.WakewordEnabled && len(c.WakewordPhrases) == 0 {
		return fmt.Errorf("wake word enabled but no phrases configured")
	}
	return nil
}
