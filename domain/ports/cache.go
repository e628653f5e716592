package ports

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/models"
)

// BoardCachePort cache รายการ task ของ board (อ่านบ่อย เขียนน้อย)
type BoardCachePort interface {
	GetOrLoadTasks(ctx context.Context, boardID uuid.UUID, load func() ([]*models.Task, error)) ([]*models.Task, error)
	InvalidateBoard(ctx context.Context, boardID uuid.UUID) error
}
