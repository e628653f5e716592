package services

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/models"
)

type ColumnService interface {
	CreateColumn(ctx context.Context, userID, boardID uuid.UUID, req *dto.CreateColumnRequest) (*models.Column, error)
	UpdateColumn(ctx context.Context, userID, columnID uuid.UUID, req *dto.UpdateColumnRequest) (*models.Column, error)
	DeleteColumn(ctx context.Context, userID, columnID uuid.UUID) (*models.Column, error)
}
