package services

import (
	"context"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/models"
)

// MoveResult task ที่ถูกย้าย + ทุก task ใน column ต้นทาง/ปลายทาง (เรียงตาม position)
type MoveResult struct {
	Task          *models.Task
	AffectedTasks []*models.Task
	NoOp          bool
}

type TaskService interface {
	CreateTask(ctx context.Context, userID uuid.UUID, req *dto.CreateTaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	ListBoardTasks(ctx context.Context, boardID uuid.UUID) ([]*models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error)
	MoveTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.MoveTaskRequest) (*MoveResult, error)
}
