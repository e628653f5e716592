package repositories

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/models"
)

type ColumnRepository interface {
	Create(ctx context.Context, column *models.Column) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Column, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Column, error)
	CountByBoard(ctx context.Context, boardID uuid.UUID) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// ShiftOrder adds delta to every column of boardID whose position >= from.
	ShiftOrder(ctx context.Context, boardID uuid.UUID, from, delta int) error
	// LockForUpdate locks the column rows until the surrounding transaction
	// ends. Every write to task positions holds the lock of its column.
	LockForUpdate(ctx context.Context, ids ...uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBoard(ctx context.Context, boardID uuid.UUID) error
}
