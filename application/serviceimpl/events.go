package serviceimpl

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/domain/events"
	"taskboard/domain/ports"
	"taskboard/pkg/logger"
)

// eventSink ส่ง board event หลัง commit; ความผิดพลาดของ broadcast ไม่ทำให้ mutation fail
type eventSink struct {
	publisher ports.BoardEventPublisherPort
}

func (s eventSink) emit(ctx context.Context, t events.Type, boardID, userID uuid.UUID, body events.Payload) {
	if s.publisher == nil {
		return
	}
	env, err := events.New(t, boardID, userID, body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build board event", "type", t, "board_id", boardID, "error", err)
		return
	}
	// request อาจจบไปแล้ว แต่ event ต้องถูกส่ง
	if err := s.publisher.PublishBoardEvent(context.WithoutCancel(ctx), env); err != nil {
		logger.WarnContext(ctx, "Failed to publish board event", "type", t, "board_id", boardID, "error", err)
	}
}

// notFound maps gorm's missing-row error to a domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
