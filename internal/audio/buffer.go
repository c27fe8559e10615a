package audio

import (
	"sync"
	"time"
)

// ClipBuffer accumulates PCM16 mono audio up to a fixed duration. Writes past
// the cap are truncated; the recording window is closed by the caller once
// Full reports true.
type ClipBuffer struct {
	mu         sync.Mutex
	data       []byte
	limit      int
	sampleRate int
}

// NewClipBuffer creates a buffer holding at most maxDuration of audio at sampleRate
func NewClipBuffer(sampleRate int, maxDuration time.Duration) *ClipBuffer {
	limit := BytesForDuration(sampleRate, maxDuration)
	return &ClipBuffer{
		data:       make([]byte, 0, limit),
		limit:      limit,
		sampleRate: sampleRate,
	}
}

// Write appends data and returns the number of bytes kept
// (may be less than len(data) if the cap was reached)
func (cb *ClipBuffer) Write(data []byte) int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	space := cb.limit - len(cb.data)
	if space <= 0 {
		return 0
	}
	if len(data) > space {
		// keep whole samples only
		data = data[:space&^1]
	}
	cb.data = append(cb.data, data...)
	return len(data)
}

// Bytes returns a copy of the recorded audio
func (cb *ClipBuffer) Bytes() []byte {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make([]byte, len(cb.data))
	copy(out, cb.data)
	return out
}

// Len returns the number of recorded bytes
func (cb *ClipBuffer) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.data)
}

// Duration returns the length of the recorded audio
func (cb *ClipBuffer) Duration() time.Duration {
	return DurationOf(cb.Len(), cb.sampleRate)
}

// Full returns true once the cap is reached
func (cb *ClipBuffer) Full() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.limit-len(cb.data) < 2
}

// Reset discards the recorded audio
func (cb *ClipBuffer) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.data = cb.data[:0]
}

// BytesForDuration returns the PCM16 mono byte count of d at sampleRate
func BytesForDuration(sampleRate int, d time.Duration) int {
	samples := int(int64(sampleRate) * int64(d) / int64(time.Second))
	return samples * 2
}

// DurationOf returns the playback duration of n PCM16 mono bytes at sampleRate
func DurationOf(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(n/2) * int64(time.Second) / int64(sampleRate))
}
