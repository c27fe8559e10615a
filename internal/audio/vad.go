package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech detection
	SilenceFrames   int     // Number of consecutive silence frames to mark as end of speech
	FrameSize       int     // Number of samples per frame (320 at 16kHz = 20ms)
}

// DefaultVADConfig returns a default VAD configuration for 16kHz microphone audio
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: ThresholdForSensitivity(0.5),
		SilenceFrames:   40,  // 800ms of silence (40 frames * 20ms)
		FrameSize:       320, // 20ms at 16kHz
	}
}

// Energy thresholds at sensitivity 0 and 1
const (
	minSensitivityThreshold = 1500.0
	maxSensitivityThreshold = 100.0
)

// ThresholdForSensitivity maps a microphone sensitivity in [0,1] to an RMS
// threshold. Higher sensitivity accepts quieter speech.
func ThresholdForSensitivity(sensitivity float64) float64 {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}
	return minSensitivityThreshold - sensitivity*(minSensitivityThreshold-maxSensitivityThreshold)
}

// VADDetector performs Voice Activity Detection
type VADDetector struct {
	config         *VADConfig
	silenceCounter int
	isSpeaking     bool
	heardSpeech    bool
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VADDetector{config: config}
}

// ProcessFrame processes an audio frame and returns whether speech is detected
// Returns: (isSpeaking, speechStarted, speechEnded)
func (v *VADDetector) ProcessFrame(samples []int16) (bool, bool, bool) {
	frameHasSpeech := CalculateRMS(samples) > v.config.EnergyThreshold

	var speechStarted, speechEnded bool

	if frameHasSpeech {
		v.silenceCounter = 0
		if !v.isSpeaking {
			speechStarted = true
			v.isSpeaking = true
			v.heardSpeech = true
		}
	} else {
		v.silenceCounter++
		if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
			speechEnded = true
			v.isSpeaking = false
			v.silenceCounter = 0
		}
	}

	return v.isSpeaking, speechStarted, speechEnded
}

// ProcessPCM splits little-endian PCM16 bytes into frames and feeds them to
// the detector. It reports whether any frame ended a speech segment.
// A trailing partial frame is processed as is.
func (v *VADDetector) ProcessPCM(pcm []byte) bool {
	samples := BytesToSamples(pcm)
	frame := v.config.FrameSize
	if frame <= 0 {
		frame = len(samples)
	}

	ended := false
	for start := 0; start < len(samples); start += frame {
		end := start + frame
		if end > len(samples) {
			end = len(samples)
		}
		if _, _, e := v.ProcessFrame(samples[start:end]); e {
			ended = true
		}
	}
	return ended
}

// Reset resets the VAD detector state
func (v *VADDetector) Reset() {
	v.silenceCounter = 0
	v.isSpeaking = false
	v.heardSpeech = false
}

// IsSpeaking returns whether speech is currently detected
func (v *VADDetector) IsSpeaking() bool {
	return v.isSpeaking
}

// HeardSpeech returns whether any speech was detected since the last Reset
func (v *VADDetector) HeardSpeech() bool {
	return v.heardSpeech
}

// DetectSilence detects if audio samples represent silence
// Uses a simple energy threshold
func DetectSilence(samples []int16, threshold float64) bool {
	return CalculateRMS(samples) < threshold
}
