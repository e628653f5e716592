package handlers

import (
	"taskboard/domain/services"
)

// Services contains all the services needed for handlers
type Services struct {
	UserService   services.UserService
	BoardService  services.BoardService
	ColumnService services.ColumnService
	TaskService   services.TaskService
	Presence      PresenceReader // realtime hub; nil = ไม่มี presence
	ServiceName   string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	UserHandler   *UserHandler
	BoardHandler  *BoardHandler
	ColumnHandler *ColumnHandler
	TaskHandler   *TaskHandler
	HealthHandler *HealthHandler
}

// NewHandlers creates a new instance of Handlers with all dependencies
func NewHandlers(services *Services) *Handlers {
	return &Handlers{
		UserHandler:   NewUserHandler(services.UserService),
		BoardHandler:  NewBoardHandler(services.BoardService, services.Presence),
		ColumnHandler: NewColumnHandler(services.ColumnService),
		TaskHandler:   NewTaskHandler(services.TaskService),
		HealthHandler: NewHealthHandler(services.ServiceName, services.Presence),
	}
}
