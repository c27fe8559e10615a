package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/medvox/voice-command-gateway/internal/voice"
)

// Microphone is an audio input producing little-endian PCM16 mono frames
type Microphone interface {
	// Open starts delivering frames
	Open(ctx context.Context) (Stream, error)

	// SampleRate of the delivered frames
	SampleRate() int
}

// Stream is an open microphone
type Stream interface {
	// Frames is closed when the microphone stops producing audio
	Frames() <-chan []byte

	Close() error
}

// Device enforces exclusive use of a Microphone: at most one lease is
// outstanding at any time.
type Device struct {
	mic Microphone
	sem chan struct{}
}

// NewDevice wraps mic
func NewDevice(mic Microphone) *Device {
	return &Device{
		mic: mic,
		sem: make(chan struct{}, 1),
	}
}

// SampleRate of the underlying microphone
func (d *Device) SampleRate() int {
	return d.mic.SampleRate()
}

// Acquire opens the microphone for exclusive use. It fails with
// voice.ErrMicrophoneUnavailable when a lease is outstanding or the
// microphone cannot be opened.
func (d *Device) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case d.sem <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: in use", voice.ErrMicrophoneUnavailable)
	}

	stream, err := d.mic.Open(ctx)
	if err != nil {
		<-d.sem
		return nil, fmt.Errorf("%w: %v", voice.ErrMicrophoneUnavailable, err)
	}

	return &Lease{device: d, stream: stream}, nil
}

// InUse reports whether a lease is outstanding
func (d *Device) InUse() bool {
	return len(d.sem) > 0
}

// Lease is exclusive access to an open microphone
type Lease struct {
	device *Device
	stream Stream
	once   sync.Once
}

// Frames delivers microphone audio until the lease is released or the
// microphone stops
func (l *Lease) Frames() <-chan []byte {
	return l.stream.Frames()
}

// Release closes the microphone and frees the device. Safe to call more
// than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		_ = l.stream.Close()
		<-l.device.sem
	})
}
