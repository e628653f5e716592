package routes

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/interfaces/api/handlers"
	"taskboard/interfaces/api/middleware"
)

func SetupUserRoutes(api fiber.Router, h *handlers.Handlers) {
	users := api.Group("/users")
	users.Post("/", h.UserHandler.CreateUser)
	users.Get("/", h.UserHandler.ListUsers)
	users.Get("/:id", h.UserHandler.GetUser)
}

func SetupBoardRoutes(api fiber.Router, h *handlers.Handlers, jwtSecret string) {
	boards := api.Group("/boards")
	boards.Get("/", middleware.Optional(jwtSecret), h.BoardHandler.ListBoards)
	boards.Post("/", middleware.Protected(jwtSecret), h.BoardHandler.CreateBoard)
	boards.Get("/:id", h.BoardHandler.GetBoard)
	boards.Put("/:id", middleware.Protected(jwtSecret), h.BoardHandler.UpdateBoard)
	boards.Delete("/:id", middleware.Protected(jwtSecret), h.BoardHandler.DeleteBoard)
	boards.Get("/:id/tasks", h.TaskHandler.ListBoardTasks)
	boards.Get("/:id/presence", h.BoardHandler.Presence)
	boards.Post("/:id/columns", middleware.Protected(jwtSecret), h.ColumnHandler.CreateColumn)
}

func SetupColumnRoutes(api fiber.Router, h *handlers.Handlers, jwtSecret string) {
	columns := api.Group("/columns")
	columns.Use(middleware.Protected(jwtSecret))
	columns.Put("/:id", h.ColumnHandler.UpdateColumn)
	columns.Delete("/:id", h.ColumnHandler.DeleteColumn)
}

func SetupTaskRoutes(api fiber.Router, h *handlers.Handlers, jwtSecret string) {
	tasks := api.Group("/tasks")
	tasks.Get("/:id", h.TaskHandler.GetTask)
	tasks.Post("/", middleware.Protected(jwtSecret), h.TaskHandler.CreateTask)
	tasks.Put("/:id", middleware.Protected(jwtSecret), h.TaskHandler.UpdateTask)
	tasks.Put("/:id/move", middleware.Protected(jwtSecret), h.TaskHandler.MoveTask)
	tasks.Delete("/:id", middleware.Protected(jwtSecret), h.TaskHandler.DeleteTask)
}
