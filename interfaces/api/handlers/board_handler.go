package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/models"
	"taskboard/domain/services"
	"taskboard/interfaces/api/middleware"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

// PresenceReader snapshot ของ realtime hub (อ่านอย่างเดียว)
type PresenceReader interface {
	BoardUsers(boardID uuid.UUID) []uuid.UUID
	ActiveBoards() int
	Connections() int
}

type BoardHandler struct {
	boardService services.BoardService
	presence     PresenceReader
}

func NewBoardHandler(boardService services.BoardService, presence PresenceReader) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		presence:     presence,
	}
}

func (h *BoardHandler) CreateBoard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req dto.CreateBoardRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	logger.InfoContext(ctx, "Board creation attempt", "user_id", userID, "title", req.Title)

	board, err := h.boardService.CreateBoard(ctx, userID, &req)
	if err != nil {
		return serviceError(c, "Board creation", err)
	}

	logger.InfoContext(ctx, "Board created", "board_id", board.ID, "slug", board.Slug)
	return utils.CreatedResponse(c, dto.BoardToBoardResponse(board))
}

// ListBoards returns every board, or only the caller's boards with ?mine=true.
func (h *BoardHandler) ListBoards(c *fiber.Ctx) error {
	userID := uuid.Nil
	if c.QueryBool("mine") {
		userID = middleware.CurrentUserID(c)
		if userID == uuid.Nil {
			return utils.UnauthorizedResponse(c, "Authentication required")
		}
	}

	boards, err := h.boardService.ListBoards(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, "Board listing", err)
	}
	return utils.SuccessResponse(c, boardResponses(boards))
}

func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	boardID, ok, err := parseID(c, "id", "board")
	if !ok {
		return err
	}

	board, err := h.boardService.GetBoard(c.UserContext(), boardID)
	if err != nil {
		return serviceError(c, "Board lookup", err)
	}
	return utils.SuccessResponse(c, dto.BoardToBoardResponse(board))
}

func (h *BoardHandler) UpdateBoard(c *fiber.Ctx) error {
	ctx := c.UserContext()

	boardID, ok, err := parseID(c, "id", "board")
	if !ok {
		return err
	}

	var req dto.UpdateBoardRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	board, err := h.boardService.UpdateBoard(ctx, middleware.CurrentUserID(c), boardID, &req)
	if err != nil {
		return serviceError(c, "Board update", err)
	}

	logger.InfoContext(ctx, "Board updated", "board_id", boardID)
	return utils.SuccessResponse(c, dto.BoardToBoardResponse(board))
}

func (h *BoardHandler) DeleteBoard(c *fiber.Ctx) error {
	ctx := c.UserContext()

	boardID, ok, err := parseID(c, "id", "board")
	if !ok {
		return err
	}

	logger.InfoContext(ctx, "Board deletion attempt", "board_id", boardID)

	if err := h.boardService.DeleteBoard(ctx, middleware.CurrentUserID(c), boardID); err != nil {
		return serviceError(c, "Board deletion", err)
	}
	return utils.SuccessResponse(c, dto.DeletedResponse{ID: boardID})
}

// Presence viewer ids ที่เชื่อมต่อกับ board นี้บน instance นี้
func (h *BoardHandler) Presence(c *fiber.Ctx) error {
	boardID, ok, err := parseID(c, "id", "board")
	if !ok {
		return err
	}

	users := []uuid.UUID{}
	if h.presence != nil {
		if ids := h.presence.BoardUsers(boardID); ids != nil {
			users = ids
		}
	}
	return utils.SuccessResponse(c, dto.PresenceResponse{BoardID: boardID, UserIDs: users})
}

func boardResponses(boards []*models.Board) []dto.BoardResponse {
	out := make([]dto.BoardResponse, 0, len(boards))
	for _, b := range boards {
		out = append(out, *dto.BoardToBoardResponse(b))
	}
	return out
}
