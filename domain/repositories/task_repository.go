package repositories

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/models"
)

// OrderUpdate position ใหม่ของ task หนึ่งตัวหลัง reorder
type OrderUpdate struct {
	ID       uuid.UUID
	ColumnID uuid.UUID
	Order    int
	// Touch อัพเดท updated_at ด้วย (เฉพาะ task ที่ถูกย้าย)
	Touch bool
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// ListByColumn returns tasks in canonical order (position, created_at).
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Task, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Task, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ReplaceAssignees(ctx context.Context, task *models.Task, users []*models.User) error
	ApplyOrder(ctx context.Context, updates []OrderUpdate) error
	// ShiftOrder adds delta to every task in columnID whose position >= from.
	ShiftOrder(ctx context.Context, columnID uuid.UUID, from, delta int) error
	// NextOrder returns max(position)+1 for the column, 0 when empty.
	NextOrder(ctx context.Context, columnID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByColumn(ctx context.Context, columnID uuid.UUID) error
	DeleteByBoard(ctx context.Context, boardID uuid.UUID) error
}
