package services

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/models"
)

type BoardService interface {
	CreateBoard(ctx context.Context, userID uuid.UUID, req *dto.CreateBoardRequest) (*models.Board, error)
	GetBoard(ctx context.Context, boardID uuid.UUID) (*models.Board, error)
	// ListBoards returns every board when userID is uuid.Nil.
	ListBoards(ctx context.Context, userID uuid.UUID) ([]*models.Board, error)
	UpdateBoard(ctx context.Context, userID, boardID uuid.UUID, req *dto.UpdateBoardRequest) (*models.Board, error)
	DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error
}
