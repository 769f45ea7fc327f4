package buttons

import (
	"context"
	"sync"
)

// ChanButtons forwards events emitted by a host, such as key presses in a
// window or terminal.
type ChanButtons struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func NewChanButtons(buffer int) *ChanButtons {
	return &ChanButtons{ch: make(chan Event, buffer)}
}

func (b *ChanButtons) Start(ctx context.Context) error { return nil }

func (b *ChanButtons) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	return nil
}

func (b *ChanButtons) Events() <-chan Event { return b.ch }

// Emit drops the event when the buffer is full or the buttons are stopped.
func (b *ChanButtons) Emit(ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	select {
	case b.ch <- ev:
		return true
	default:
		return false
	}
}
