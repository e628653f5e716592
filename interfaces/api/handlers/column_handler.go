package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/domain/dto"
	"taskboard/domain/services"
	"taskboard/interfaces/api/middleware"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

type ColumnHandler struct {
	columnService services.ColumnService
}

func NewColumnHandler(columnService services.ColumnService) *ColumnHandler {
	return &ColumnHandler{columnService: columnService}
}

func (h *ColumnHandler) CreateColumn(c *fiber.Ctx) error {
	ctx := c.UserContext()

	boardID, ok, err := parseID(c, "id", "board")
	if !ok {
		return err
	}

	var req dto.CreateColumnRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	column, err := h.columnService.CreateColumn(ctx, middleware.CurrentUserID(c), boardID, &req)
	if err != nil {
		return serviceError(c, "Column creation", err)
	}

	logger.InfoContext(ctx, "Column created", "column_id", column.ID, "board_id", boardID, "order", column.Order)
	return utils.CreatedResponse(c, dto.ColumnToColumnResponse(column))
}

func (h *ColumnHandler) UpdateColumn(c *fiber.Ctx) error {
	columnID, ok, err := parseID(c, "id", "column")
	if !ok {
		return err
	}

	var req dto.UpdateColumnRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	column, err := h.columnService.UpdateColumn(c.UserContext(), middleware.CurrentUserID(c), columnID, &req)
	if err != nil {
		return serviceError(c, "Column update", err)
	}
	return utils.SuccessResponse(c, dto.ColumnToColumnResponse(column))
}

func (h *ColumnHandler) DeleteColumn(c *fiber.Ctx) error {
	ctx := c.UserContext()

	columnID, ok, err := parseID(c, "id", "column")
	if !ok {
		return err
	}

	logger.InfoContext(ctx, "Column deletion attempt", "column_id", columnID)

	if _, err := h.columnService.DeleteColumn(ctx, middleware.CurrentUserID(c), columnID); err != nil {
		return serviceError(c, "Column deletion", err)
	}
	return utils.SuccessResponse(c, dto.DeletedResponse{ID: columnID})
}
