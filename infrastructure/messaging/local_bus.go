package messaging

import (
	"context"
	"errors"
	"sync"

	"taskboard/domain/events"
	"taskboard/domain/ports"
)

// ErrBusClosed publish หลัง Close
var ErrBusClosed = errors.New("local bus closed")

// LocalBus delivers board events in-process when NATS is not configured.
// It implements both the publisher and the subscriber port; handlers run
// synchronously on the publishing goroutine.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []ports.BoardEventHandler
	closed   bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) PublishBoardEvent(ctx context.Context, env *events.Envelope) error {
	if env == nil {
		return errors.New("event cannot be nil")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, h := range b.handlers {
		h(env)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, handler ports.BoardEventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.handlers = append(b.handlers, handler)
	return nil
}

func (b *LocalBus) Unsubscribe() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
	b.closed = true
	return nil
}
