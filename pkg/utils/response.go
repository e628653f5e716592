package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the JSON envelope every API route answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope typed form of Response, used by clients to decode data
type Envelope[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
)

// ========== Success ==========

func SuccessResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Response{Success: true, Data: data})
}

func CreatedResponse(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Response{Success: true, Data: data})
}

// ========== Errors ==========

func ErrorResponse(c *fiber.Ctx, statusCode int, code, message string, details any) error {
	return c.Status(statusCode).JSON(Response{
		Error: &ErrorInfo{Code: code, Message: message, Details: details},
	})
}

// ข้อความว่างใช้ค่า default ของแต่ละ status
func fail(c *fiber.Ctx, status int, code, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return ErrorResponse(c, status, code, message, nil)
}

func ValidationErrorResponse(c *fiber.Ctx, details any) error {
	return ErrorResponse(c, fiber.StatusBadRequest, ErrCodeValidation, "Validation failed", details)
}

func BadRequestResponse(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusBadRequest, ErrCodeBadRequest, message, "Bad request")
}

func UnauthorizedResponse(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, message, "Unauthorized")
}

func NotFoundResponse(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusNotFound, ErrCodeNotFound, message, "Resource not found")
}

func ConflictResponse(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusConflict, ErrCodeConflict, message, "Resource already exists")
}

func InternalServerErrorResponse(c *fiber.Ctx) error {
	return fail(c, fiber.StatusInternalServerError, ErrCodeInternalError, "", "Internal server error")
}
