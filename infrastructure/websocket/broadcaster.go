package websocket

import (
	"context"
	"sync"

	"taskboard/domain/events"
	"taskboard/domain/ports"
	"taskboard/pkg/logger"
)

// BoardBroadcaster relays board events from messaging into the local hub.
type BoardBroadcaster struct {
	sub       ports.BoardEventSubscriberPort
	hub       *Hub
	running   bool
	runningMu sync.Mutex
	cancel    context.CancelFunc
}

func NewBoardBroadcaster(sub ports.BoardEventSubscriberPort, hub *Hub) *BoardBroadcaster {
	return &BoardBroadcaster{sub: sub, hub: hub}
}

func (b *BoardBroadcaster) Start() error {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	if b.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.sub.Subscribe(ctx, b.handle); err != nil {
		cancel()
		return err
	}
	b.cancel = cancel
	b.running = true

	logger.Info("Board broadcaster started")
	return nil
}

func (b *BoardBroadcaster) handle(env *events.Envelope) {
	if env == nil {
		return
	}
	b.hub.Broadcast(env)
}

func (b *BoardBroadcaster) Stop() error {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	if !b.running {
		return nil
	}
	b.running = false
	b.cancel()

	if err := b.sub.Unsubscribe(); err != nil {
		logger.Warn("Failed to unsubscribe board broadcaster", "error", err)
		return err
	}
	logger.Info("Board broadcaster stopped")
	return nil
}
