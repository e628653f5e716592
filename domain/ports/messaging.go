package ports

import (
	"context"

	"taskboard/domain/events"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Board Event Publisher Port - ส่ง event หลัง commit
// ═══════════════════════════════════════════════════════════════════════════════

// BoardEventPublisherPort fan-out ของ event ไปยังทุก instance ที่มีผู้ชม board
type BoardEventPublisherPort interface {
	PublishBoardEvent(ctx context.Context, evt *events.Envelope) error
}

// ═══════════════════════════════════════════════════════════════════════════════
// Board Event Subscriber Port - รับ event เพื่อส่งต่อให้ websocket hub
// ═══════════════════════════════════════════════════════════════════════════════

type BoardEventHandler func(evt *events.Envelope)

type BoardEventSubscriberPort interface {
	Subscribe(ctx context.Context, handler BoardEventHandler) error
	Unsubscribe() error
}
