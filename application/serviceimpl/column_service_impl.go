package serviceimpl

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/events"
	"taskboard/domain/models"
	"taskboard/domain/ports"
	"taskboard/domain/repositories"
	"taskboard/domain/services"
	"taskboard/pkg/logger"
)

type ColumnServiceImpl struct {
	tx         repositories.Transactor
	columnRepo repositories.ColumnRepository
	boardRepo  repositories.BoardRepository
	taskRepo   repositories.TaskRepository
	cache      ports.BoardCachePort
	events     eventSink
}

func NewColumnService(
	tx repositories.Transactor,
	columnRepo repositories.ColumnRepository,
	boardRepo repositories.BoardRepository,
	taskRepo repositories.TaskRepository,
	publisher ports.BoardEventPublisherPort,
) *ColumnServiceImpl {
	return &ColumnServiceImpl{
		tx:         tx,
		columnRepo: columnRepo,
		boardRepo:  boardRepo,
		taskRepo:   taskRepo,
		events:     eventSink{publisher: publisher},
	}
}

func (s *ColumnServiceImpl) SetCache(cache ports.BoardCachePort) {
	s.cache = cache
}

func (s *ColumnServiceImpl) CreateColumn(ctx context.Context, userID, boardID uuid.UUID, req *dto.CreateColumnRequest) (*models.Column, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.NewValidationError("title", "title is required")
	}
	if _, err := s.boardRepo.GetByID(ctx, boardID); err != nil {
		return nil, notFound(err, services.ErrBoardNotFound)
	}

	column := &models.Column{
		ID:      uuid.New(),
		BoardID: boardID,
		Title:   title,
		Color:   req.Color,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// position ใหม่ = จำนวน column; ล็อก board กันสอง request ได้ค่าเดียวกัน
		if err := s.boardRepo.LockForUpdate(ctx, boardID); err != nil {
			return notFound(err, services.ErrBoardNotFound)
		}
		count, err := s.columnRepo.CountByBoard(ctx, boardID)
		if err != nil {
			return err
		}
		column.Order = int(count)
		return s.columnRepo.Create(ctx, column)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create column", "board_id", boardID, "error", err)
		return nil, wrap("create column", err)
	}

	logger.InfoContext(ctx, "Column created", "column_id", column.ID, "board_id", boardID, "order", column.Order)

	s.events.emit(ctx, events.ColumnCreated, boardID, userID, &events.ColumnPayload{Column: *dto.ColumnToColumnResponse(column)})
	return column, nil
}

func (s *ColumnServiceImpl) UpdateColumn(ctx context.Context, userID, columnID uuid.UUID, req *dto.UpdateColumnRequest) (*models.Column, error) {
	if _, err := s.columnRepo.GetByID(ctx, columnID); err != nil {
		logger.WarnContext(ctx, "Column not found for update", "column_id", columnID)
		return nil, notFound(err, services.ErrColumnNotFound)
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, services.NewValidationError("title", "title cannot be empty")
		}
		fields["title"] = title
	}
	if req.Color != nil {
		fields["color"] = *req.Color
	}

	if err := s.columnRepo.UpdateFields(ctx, columnID, fields); err != nil {
		logger.ErrorContext(ctx, "Failed to update column", "column_id", columnID, "error", err)
		return nil, wrap("update column", err)
	}

	updated, err := s.columnRepo.GetByID(ctx, columnID)
	if err != nil {
		return nil, notFound(err, services.ErrColumnNotFound)
	}
	logger.InfoContext(ctx, "Column updated", "column_id", columnID)

	s.events.emit(ctx, events.ColumnUpdated, updated.BoardID, userID, &events.ColumnPayload{Column: *dto.ColumnToColumnResponse(updated)})
	return updated, nil
}

// DeleteColumn removes the column and its tasks, then closes the gap in the
// board's column order.
func (s *ColumnServiceImpl) DeleteColumn(ctx context.Context, userID, columnID uuid.UUID) (*models.Column, error) {
	column, err := s.columnRepo.GetByID(ctx, columnID)
	if err != nil {
		logger.WarnContext(ctx, "Column not found for deletion", "column_id", columnID)
		return nil, notFound(err, services.ErrColumnNotFound)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.boardRepo.LockForUpdate(ctx, column.BoardID); err != nil {
			return notFound(err, services.ErrBoardNotFound)
		}
		if err := s.columnRepo.LockForUpdate(ctx, columnID); err != nil {
			return err
		}
		// อ่าน position ใหม่ภายใต้ lock
		current, err := s.columnRepo.GetByID(ctx, columnID)
		if err != nil {
			return notFound(err, services.ErrColumnNotFound)
		}
		column = current
		if err := s.taskRepo.DeleteByColumn(ctx, columnID); err != nil {
			return err
		}
		if err := s.columnRepo.Delete(ctx, columnID); err != nil {
			return err
		}
		return s.columnRepo.ShiftOrder(ctx, column.BoardID, column.Order+1, -1)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to delete column", "column_id", columnID, "error", err)
		return nil, wrap("delete column", err)
	}

	logger.InfoContext(ctx, "Column deleted", "column_id", columnID, "board_id", column.BoardID)

	if s.cache != nil {
		if err := s.cache.InvalidateBoard(ctx, column.BoardID); err != nil {
			logger.WarnContext(ctx, "Failed to invalidate board cache", "board_id", column.BoardID, "error", err)
		}
	}
	s.events.emit(ctx, events.ColumnDeleted, column.BoardID, userID, &events.ColumnDeletedPayload{ColumnID: columnID})
	return column, nil
}
