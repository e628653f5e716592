package repositories

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/models"
)

type BoardRepository interface {
	Create(ctx context.Context, board *models.Board) error
	// GetByID preloads members and columns (columns sorted by position).
	GetByID(ctx context.Context, id uuid.UUID) (*models.Board, error)
	List(ctx context.Context) ([]*models.Board, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Board, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ReplaceMembers(ctx context.Context, board *models.Board, users []*models.User) error
	// LockForUpdate locks the board row until the surrounding transaction
	// ends. Writes to column positions hold it.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
