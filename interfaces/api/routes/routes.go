package routes

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/interfaces/api/handlers"
	websocketHandler "taskboard/interfaces/api/websocket"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, ws *websocketHandler.WebSocketHandler, jwtSecret string) {
	// Setup health and root routes
	SetupHealthRoutes(app, h)

	// API version group
	api := app.Group("/api/v1")

	SetupUserRoutes(api, h)
	SetupBoardRoutes(api, h, jwtSecret)
	SetupColumnRoutes(api, h, jwtSecret)
	SetupTaskRoutes(api, h, jwtSecret)

	// Setup WebSocket routes (needs app, not api group)
	if ws != nil {
		SetupWebSocketRoutes(app, ws, jwtSecret)
	}
}
