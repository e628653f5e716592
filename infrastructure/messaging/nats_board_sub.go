package messaging

import (
	"context"

	"taskboard/domain/events"
	"taskboard/domain/ports"
	natspkg "taskboard/infrastructure/nats"
	"taskboard/pkg/logger"
)

// NATSBoardEventSubscriber implements BoardEventSubscriberPort using NATS Pub/Sub
type NATSBoardEventSubscriber struct {
	subscriber *natspkg.Subscriber
	cancel     context.CancelFunc
}

func NewNATSBoardEventSubscriber(subscriber *natspkg.Subscriber) ports.BoardEventSubscriberPort {
	return &NATSBoardEventSubscriber{subscriber: subscriber}
}

// Subscribe เริ่ม relay board events จาก NATS ไปที่ handler
func (s *NATSBoardEventSubscriber) Subscribe(ctx context.Context, handler ports.BoardEventHandler) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.subscriber.OnMessage(func(subject string, data []byte) {
		if ctx.Err() != nil {
			return
		}
		evt, err := events.Decode(data)
		if err != nil {
			// ข้อความเสียไม่ถูกส่งต่อให้ client
			logger.Warn("Dropping invalid board event from NATS", "subject", subject, "error", err)
			return
		}
		handler(&evt.Envelope)
	})

	if !s.subscriber.IsRunning() {
		return s.subscriber.Start()
	}
	return nil
}

func (s *NATSBoardEventSubscriber) Unsubscribe() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.subscriber.Stop()
}
