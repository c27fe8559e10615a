package capture

import (
	"context"
	"sync"
)

// handle is the Events/Stop/Abort plumbing shared by both backends. The
// capture goroutine owns events and closes it when done.
type handle struct {
	events chan Event
	stopCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
}

func newHandle(ctx context.Context) *handle {
	hctx, cancel := context.WithCancel(ctx)
	return &handle{
		events: make(chan Event, 16),
		stopCh: make(chan struct{}),
		ctx:    hctx,
		cancel: cancel,
	}
}

func (h *handle) Events() <-chan Event {
	return h.events
}

func (h *handle) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

func (h *handle) Abort() {
	h.cancel()
}

func (h *handle) aborted() bool {
	return h.ctx.Err() != nil
}

// emit delivers ev unless the capture was aborted
func (h *handle) emit(ev Event) {
	if h.aborted() {
		return
	}
	select {
	case h.events <- ev:
	case <-h.ctx.Done():
	}
}

func (h *handle) finish() {
	h.cancel()
	close(h.events)
}
