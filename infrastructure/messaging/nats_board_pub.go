package messaging

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"taskboard/domain/events"
	"taskboard/domain/ports"
	natspkg "taskboard/infrastructure/nats"
)

// NATSBoardEventPublisher implements BoardEventPublisherPort using NATS Pub/Sub
type NATSBoardEventPublisher struct {
	conn *nats.Conn
}

func NewNATSBoardEventPublisher(conn *nats.Conn) ports.BoardEventPublisherPort {
	return &NATSBoardEventPublisher{conn: conn}
}

// PublishBoardEvent ส่ง envelope ไป board.{boardID}.events
func (p *NATSBoardEventPublisher) PublishBoardEvent(ctx context.Context, env *events.Envelope) error {
	if env == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal board event: %w", err)
	}
	return p.conn.Publish(natspkg.BoardSubject(env.BoardID), data)
}
