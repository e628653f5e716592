package handlers

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskboard/domain/services"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

// serviceError maps a domain error to the response envelope
func serviceError(c *fiber.Ctx, op string, err error) error {
	ctx := c.UserContext()

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.WarnContext(ctx, op+" rejected", "error", err)
		return utils.ValidationErrorResponse(c, validationDetails(verr))
	case services.IsNotFound(err):
		logger.WarnContext(ctx, op+" failed", "error", err)
		return utils.NotFoundResponse(c, notFoundMessage(err))
	case errors.Is(err, services.ErrEmailTaken):
		logger.WarnContext(ctx, op+" conflict", "error", err)
		return utils.ConflictResponse(c, err.Error())
	default:
		logger.ErrorContext(ctx, op+" failed", "error", err)
		return utils.InternalServerErrorResponse(c)
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, services.ErrBoardNotFound):
		return "Board not found"
	case errors.Is(err, services.ErrColumnNotFound):
		return "Column not found"
	case errors.Is(err, services.ErrUserNotFound):
		return "User not found"
	}
	return ""
}

func validationDetails(verr *services.ValidationError) []utils.FieldError {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]utils.FieldError, 0, len(fields))
	for _, f := range fields {
		out = append(out, utils.FieldError{Field: f, Tag: "invalid", Message: verr.Fields[f]})
	}
	return out
}

// parseBody decodes and validates req; ok=false means the error response is already written.
func parseBody(c *fiber.Ctx, req any) (bool, error) {
	ctx := c.UserContext()
	if err := c.BodyParser(req); err != nil {
		logger.WarnContext(ctx, "Invalid request body", "error", err)
		return false, utils.BadRequestResponse(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		errs := utils.GetValidationErrors(err)
		logger.WarnContext(ctx, "Validation failed", "errors", errs)
		return false, utils.ValidationErrorResponse(c, errs)
	}
	return true, nil
}

func parseID(c *fiber.Ctx, param, label string) (uuid.UUID, bool, error) {
	raw := c.Params(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.WarnContext(c.UserContext(), "Invalid "+label+" ID", "id", raw)
		return uuid.Nil, false, utils.BadRequestResponse(c, "Invalid "+label+" ID")
	}
	return id, true, nil
}
