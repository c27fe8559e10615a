package stt

import (
	"strings"
	"sync"
)

// resultStream is the Results side shared by the continuous engines. It
// accumulates final segments until the engine marks the end of speech and
// tolerates emits racing with close.
type resultStream struct {
	mu       sync.Mutex
	ch       chan TranscriptionResult
	closed   bool
	err      error
	segments []string
	interim  string
}

func newResultStream(size int) *resultStream {
	return &resultStream{ch: make(chan TranscriptionResult, size)}
}

func (r *resultStream) results() <-chan TranscriptionResult {
	return r.ch
}

// interimText publishes a revisable hypothesis
func (r *resultStream) interimText(text string, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interim = text
	r.sendLocked(TranscriptionResult{Text: r.joinLocked(text), Confidence: confidence})
}

// segment records text the engine will not revise. When endOfSpeech is set
// the accumulated segments are published as one final result.
func (r *resultStream) segment(text string, confidence float64, endOfSpeech bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interim = ""
	if text = strings.TrimSpace(text); text != "" {
		r.segments = append(r.segments, text)
	}
	if endOfSpeech {
		r.flushLocked(confidence)
	}
}

// flush publishes whatever was heard as final, the last interim included
func (r *resultStream) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interim != "" {
		r.segments = append(r.segments, r.interim)
		r.interim = ""
	}
	r.flushLocked(0)
}

func (r *resultStream) flushLocked(confidence float64) {
	if len(r.segments) == 0 {
		return
	}
	text := strings.Join(r.segments, " ")
	r.segments = nil
	r.sendLocked(TranscriptionResult{Text: text, IsFinal: true, Confidence: confidence})
}

func (r *resultStream) joinLocked(tail string) string {
	if len(r.segments) == 0 {
		return tail
	}
	return strings.TrimSpace(strings.Join(r.segments, " ") + " " + tail)
}

// sendLocked never blocks the engine callback; interim results are dropped
// when the reader is slow, finals wait for a slot only while the stream is open
func (r *resultStream) sendLocked(res TranscriptionResult) {
	if r.closed || res.Text == "" {
		return
	}
	if res.IsFinal {
		// drop stale interims to make room
		for len(r.ch) == cap(r.ch) {
			select {
			case <-r.ch:
			default:
			}
		}
	}
	select {
	case r.ch <- res:
	default:
	}
}

// fail records the engine error and closes the stream
func (r *resultStream) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.err == nil {
		r.err = err
	}
	r.closeLocked()
}

func (r *resultStream) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *resultStream) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}

func (r *resultStream) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
