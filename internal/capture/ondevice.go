package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvox/voice-command-gateway/internal/observability"
	"github.com/medvox/voice-command-gateway/internal/stt"
	"github.com/medvox/voice-command-gateway/internal/voice"
)

// OnDevice streams microphone audio into a continuous recognizer and emits
// interim and final utterances as they are recognized
type OnDevice struct {
	device     *Device
	recognizer stt.StreamRecognizer
	logger     zerolog.Logger
}

// NewOnDevice creates the on-device capture backend
func NewOnDevice(device *Device, recognizer stt.StreamRecognizer) *OnDevice {
	return &OnDevice{
		device:     device,
		recognizer: recognizer,
		logger:     observability.Component("capture.on_device"),
	}
}

// Mode returns voice.CaptureOnDevice
func (o *OnDevice) Mode() voice.CaptureMode { return voice.CaptureOnDevice }

// Start acquires the microphone and opens a recognition session
func (o *OnDevice) Start(ctx context.Context, cfg voice.ProviderConfig) (Handle, error) {
	lease, err := o.device.Acquire(ctx)
	if err != nil {
		observability.RecordCapture(string(voice.CaptureOnDevice), false)
		return nil, err
	}

	h := newHandle(ctx)
	sess, err := o.recognizer.Open(h.ctx, stt.StreamOptions{
		Language:   cfg.Language,
		SampleRate: o.device.SampleRate(),
	})
	if err != nil {
		h.cancel()
		lease.Release()
		observability.RecordCapture(string(voice.CaptureOnDevice), false)
		return nil, fmt.Errorf("%w: %s: %w", voice.ErrRecognition, o.recognizer.Name(), err)
	}

	c := &onDeviceCapture{
		handle:  h,
		lease:   lease,
		sess:    sess,
		logger:  o.logger.With().Str("engine", o.recognizer.Name()).Logger(),
		pumpEnd: make(chan struct{}),
		resEnd:  make(chan struct{}),
	}
	go c.pump()
	go c.forward()

	o.logger.Debug().Str("engine", o.recognizer.Name()).Str("language", cfg.Language).Msg("On-device capture started")
	return h, nil
}

type onDeviceCapture struct {
	*handle
	lease  *Lease
	sess   stt.StreamSession
	logger zerolog.Logger

	pumpEnd chan struct{}
	resEnd  chan struct{}

	mu       sync.Mutex
	writeErr error
}

// pump feeds microphone frames to the recognizer until stopped
func (c *onDeviceCapture) pump() {
	defer close(c.pumpEnd)

	frames := c.lease.Frames()
	for {
		select {
		case <-c.ctx.Done():
			_ = c.sess.Close()
			return

		case <-c.stopCh:
			_ = c.sess.Finish()
			return

		case <-c.resEnd:
			return

		case frame, ok := <-frames:
			if !ok {
				// microphone went away; keep what was heard
				_ = c.sess.Finish()
				return
			}
			if err := c.sess.Write(frame); err != nil {
				c.mu.Lock()
				c.writeErr = err
				c.mu.Unlock()
				_ = c.sess.Close()
				return
			}
		}
	}
}

// forward turns recognizer results into events and tears the capture down
// once the recognizer session ends
func (c *onDeviceCapture) forward() {
	defer c.finish()

	for res := range c.sess.Results() {
		c.emit(Event{
			Type: EventUtterance,
			Utterance: &voice.Utterance{
				Text:       res.Text,
				Final:      res.IsFinal,
				Backend:    voice.CaptureOnDevice,
				ReceivedAt: time.Now(),
			},
		})
	}
	close(c.resEnd)
	<-c.pumpEnd
	c.lease.Release()

	err := c.sess.Err()
	if err == nil {
		c.mu.Lock()
		err = c.writeErr
		c.mu.Unlock()
	}
	if err != nil && !c.aborted() {
		c.logger.Warn().Err(err).Msg("Recognition session failed")
		observability.RecordCapture(string(voice.CaptureOnDevice), false)
		c.emit(Event{Type: EventError, Err: asRecognitionError(err)})
		return
	}
	observability.RecordCapture(string(voice.CaptureOnDevice), true)
}

func asRecognitionError(err error) error {
	if voice.Recoverable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", voice.ErrRecognition, err)
}
