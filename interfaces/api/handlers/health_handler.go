package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/domain/dto"
)

type HealthHandler struct {
	service  string
	presence PresenceReader
}

func NewHealthHandler(service string, presence PresenceReader) *HealthHandler {
	return &HealthHandler{service: service, presence: presence}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	resp := dto.HealthResponse{Status: "ok", Service: h.service}
	if h.presence != nil {
		resp.ActiveBoards = h.presence.ActiveBoards()
		resp.Connections = h.presence.Connections()
	}
	return c.JSON(resp)
}
