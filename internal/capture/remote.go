package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/audio"
	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/resilience"
	"github.com/medvox/voice-command-gateway/internal/stt"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Remote records a bounded clip and uploads it for transcription once the
// recording closes
type Remote struct {
	device      *Device
	transcriber stt.Transcriber
	retry       *resilience.RetryConfig
	logger      zerolog.Logger
}

// NewRemote creates the remote capture backend. A nil retry config means
// one retry with the default backoff.
func NewRemote(device *Device, transcriber stt.Transcriber, retry *resilience.RetryConfig) *Remote {
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	return &Remote{
		device:      device,
		transcriber: transcriber,
		retry:       retry,
		logger:      observability.Component("capture.remote"),
	}
}

// Mode returns voice.CaptureRemote
func (r *Remote) Mode() voice.CaptureMode { return voice.CaptureRemote }

// Start acquires the microphone and begins recording
func (r *Remote) Start(ctx context.Context, cfg voice.ProviderConfig) (Handle, error) {
	lease, err := r.device.Acquire(ctx)
	if err != nil {
		observability.RecordCapture(string(voice.CaptureRemote), false)
		return nil, err
	}

	h := newHandle(ctx)
	go r.run(h, lease, cfg)

	r.logger.Debug().
		Dur("recording_cap", cfg.RecordingCap).
		Float64("mic_sensitivity", cfg.MicSensitivity).
		Msg("Remote capture started")
	return h, nil
}

func (r *Remote) run(h *handle, lease *Lease, cfg voice.ProviderConfig) {
	defer h.finish()

	pcm, reason := r.record(h, lease, cfg)
	lease.Release()
	if h.aborted() {
		return
	}

	r.logger.Debug().
		Str("reason", reason).
		Dur("duration", audio.DurationOf(len(pcm), r.device.SampleRate())).
		Msg("Recording closed")
	h.emit(Event{Type: EventRecordingClosed})

	if len(pcm) == 0 {
		h.emit(Event{Type: EventUtterance, Utterance: r.utterance("")})
		return
	}

	text, err := r.transcribe(h.ctx, pcm, cfg)
	if h.aborted() {
		return
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("provider", r.transcriber.Name()).Msg("Transcription failed")
		observability.RecordCapture(string(voice.CaptureRemote), false)
		h.emit(Event{Type: EventError, Err: err})
		return
	}

	observability.RecordCapture(string(voice.CaptureRemote), true)
	h.emit(Event{Type: EventUtterance, Utterance: r.utterance(text)})
}

// record buffers microphone audio until the cap is reached, trailing
// silence follows speech, Stop is called or the microphone closes
func (r *Remote) record(h *handle, lease *Lease, cfg voice.ProviderConfig) ([]byte, string) {
	buf := audio.NewClipBuffer(r.device.SampleRate(), cfg.RecordingCap)
	vadCfg := audio.DefaultVADConfig()
	vadCfg.EnergyThreshold = audio.ThresholdForSensitivity(cfg.MicSensitivity)
	vadCfg.FrameSize = r.device.SampleRate() / 50
	vad := audio.NewVADDetector(vadCfg)

	frames := lease.Frames()
	for {
		select {
		case <-h.ctx.Done():
			return nil, "aborted"

		case <-h.stopCh:
			return buf.Bytes(), "stop"

		case frame, ok := <-frames:
			if !ok {
				return buf.Bytes(), "microphone_closed"
			}
			buf.Write(frame)
			if buf.Full() {
				return buf.Bytes(), "cap"
			}
			if vad.ProcessPCM(frame) && vad.HeardSpeech() {
				return buf.Bytes(), "silence"
			}
		}
	}
}

// transcribe uploads the clip with the capture timeout, retrying once on
// retryable failures
func (r *Remote) transcribe(ctx context.Context, pcm []byte, cfg voice.ProviderConfig) (string, error) {
	if cfg.CaptureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CaptureTimeout)
		defer cancel()
	}

	clip := stt.Clip{PCM: pcm, SampleRate: r.device.SampleRate(), Language: cfg.Language}
	var text string
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		var err error
		text, err = r.transcriber.Transcribe(ctx, clip)
		return err
	}, r.retry, resilience.IsRetryableNetworkError)

	if err == nil {
		return text, nil
	}
	if errors.Is(err, voice.ErrTranscription) {
		return "", err
	}
	return "", fmt.Errorf("%w: %s: %w", voice.ErrTranscription, r.transcriber.Name(), err)
}

func (r *Remote) utterance(text string) *voice.Utterance {
	return &voice.Utterance{
		Text:       text,
		Final:      true,
		Backend:    voice.CaptureRemote,
		ReceivedAt: time.Now(),
	}
}
