package serviceimpl

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"taskboard/domain/dto"
	"taskboard/domain/events"
	"taskboard/domain/models"
	"taskboard/domain/ports"
	"taskboard/domain/repositories"
	"taskboard/domain/services"
	"taskboard/pkg/logger"
)

// DefaultColumns ใช้เมื่อสร้าง board โดยไม่ระบุ columns
var DefaultColumns = []string{"To Do", "In Progress", "Done"}

type BoardServiceImpl struct {
	tx         repositories.Transactor
	boardRepo  repositories.BoardRepository
	columnRepo repositories.ColumnRepository
	taskRepo   repositories.TaskRepository
	userRepo   repositories.UserRepository
	cache      ports.BoardCachePort
	events     eventSink
}

func NewBoardService(
	tx repositories.Transactor,
	boardRepo repositories.BoardRepository,
	columnRepo repositories.ColumnRepository,
	taskRepo repositories.TaskRepository,
	userRepo repositories.UserRepository,
	publisher ports.BoardEventPublisherPort,
) *BoardServiceImpl {
	return &BoardServiceImpl{
		tx:         tx,
		boardRepo:  boardRepo,
		columnRepo: columnRepo,
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		events:     eventSink{publisher: publisher},
	}
}

func (s *BoardServiceImpl) SetCache(cache ports.BoardCachePort) {
	s.cache = cache
}

func (s *BoardServiceImpl) CreateBoard(ctx context.Context, userID uuid.UUID, req *dto.CreateBoardRequest) (*models.Board, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.NewValidationError("title", "title is required")
	}

	memberIDs := append([]uuid.UUID{}, req.MemberIDs...)
	if userID != uuid.Nil {
		memberIDs = append(memberIDs, userID)
	}
	members, err := s.resolveMembers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	titles := req.Columns
	if len(titles) == 0 {
		titles = DefaultColumns
	}

	board := &models.Board{
		ID:          uuid.New(),
		Title:       title,
		Slug:        slug.Make(title),
		Description: req.Description,
		OwnerID:     userID,
		Members:     members,
	}
	for i, t := range titles {
		board.Columns = append(board.Columns, models.Column{
			ID:      uuid.New(),
			BoardID: board.ID,
			Title:   strings.TrimSpace(t),
			Order:   i,
		})
	}

	if err := s.boardRepo.Create(ctx, board); err != nil {
		logger.ErrorContext(ctx, "Failed to create board", "title", title, "error", err)
		return nil, wrap("create board", err)
	}

	created, err := s.boardRepo.GetByID(ctx, board.ID)
	if err != nil {
		return nil, wrap("reload board", err)
	}
	logger.InfoContext(ctx, "Board created", "board_id", created.ID, "slug", created.Slug, "columns", len(created.Columns))
	return created, nil
}

func (s *BoardServiceImpl) GetBoard(ctx context.Context, boardID uuid.UUID) (*models.Board, error) {
	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		return nil, notFound(err, services.ErrBoardNotFound)
	}
	return board, nil
}

func (s *BoardServiceImpl) ListBoards(ctx context.Context, userID uuid.UUID) ([]*models.Board, error) {
	if userID == uuid.Nil {
		return s.boardRepo.List(ctx)
	}
	return s.boardRepo.ListByMember(ctx, userID)
}

func (s *BoardServiceImpl) UpdateBoard(ctx context.Context, userID, boardID uuid.UUID, req *dto.UpdateBoardRequest) (*models.Board, error) {
	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		logger.WarnContext(ctx, "Board not found for update", "board_id", boardID)
		return nil, notFound(err, services.ErrBoardNotFound)
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, services.NewValidationError("title", "title cannot be empty")
		}
		fields["title"] = title
		fields["slug"] = slug.Make(title)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	var members []*models.User
	if req.MemberIDs != nil {
		ids := append([]uuid.UUID{}, *req.MemberIDs...)
		if board.OwnerID != uuid.Nil {
			ids = append(ids, board.OwnerID) // owner เป็น member เสมอ
		}
		if members, err = s.resolveMemberPtrs(ctx, ids); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.boardRepo.UpdateFields(ctx, boardID, fields); err != nil {
			return err
		}
		if req.MemberIDs != nil {
			return s.boardRepo.ReplaceMembers(ctx, board, members)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to update board", "board_id", boardID, "error", err)
		return nil, wrap("update board", err)
	}

	updated, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		return nil, notFound(err, services.ErrBoardNotFound)
	}
	logger.InfoContext(ctx, "Board updated", "board_id", boardID)

	s.events.emit(ctx, events.BoardUpdated, boardID, userID, &events.BoardPayload{Board: *dto.BoardToBoardResponse(updated)})
	return updated, nil
}

// DeleteBoard removes the board with its columns, tasks and memberships.
func (s *BoardServiceImpl) DeleteBoard(ctx context.Context, userID, boardID uuid.UUID) error {
	if _, err := s.boardRepo.GetByID(ctx, boardID); err != nil {
		logger.WarnContext(ctx, "Board not found for deletion", "board_id", boardID)
		return notFound(err, services.ErrBoardNotFound)
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.taskRepo.DeleteByBoard(ctx, boardID); err != nil {
			return err
		}
		if err := s.columnRepo.DeleteByBoard(ctx, boardID); err != nil {
			return err
		}
		return s.boardRepo.Delete(ctx, boardID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to delete board", "board_id", boardID, "error", err)
		return wrap("delete board", err)
	}

	logger.InfoContext(ctx, "Board deleted", "board_id", boardID)

	if s.cache != nil {
		if err := s.cache.InvalidateBoard(ctx, boardID); err != nil {
			logger.WarnContext(ctx, "Failed to invalidate board cache", "board_id", boardID, "error", err)
		}
	}
	s.events.emit(ctx, events.BoardDeleted, boardID, userID, &events.BoardDeletedPayload{BoardID: boardID})
	return nil
}

func (s *BoardServiceImpl) resolveMembers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	users, err := s.resolveMemberPtrs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, len(users))
	for i, u := range users {
		out[i] = *u
	}
	return out, nil
}

func (s *BoardServiceImpl) resolveMemberPtrs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, wrap("resolve members", err)
	}
	if len(users) != len(unique) {
		return nil, services.NewValidationError("memberIds", "unknown user in members")
	}
	return users, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
