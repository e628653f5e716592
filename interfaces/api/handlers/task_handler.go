package handlers

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/domain/dto"
	"taskboard/domain/services"
	"taskboard/interfaces/api/middleware"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	var req dto.CreateTaskRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	logger.InfoContext(ctx, "Task creation attempt", "user_id", userID, "column_id", req.ColumnID, "title", req.Title)

	task, err := h.taskService.CreateTask(ctx, userID, &req)
	if err != nil {
		return serviceError(c, "Task creation", err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", task.ID, "user_id", userID)
	return utils.CreatedResponse(c, dto.TaskToTaskResponse(task))
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	taskID, ok, err := parseID(c, "id", "task")
	if !ok {
		return err
	}

	task, err := h.taskService.GetTask(c.UserContext(), taskID)
	if err != nil {
		return serviceError(c, "Task lookup", err)
	}
	return utils.SuccessResponse(c, dto.TaskToTaskResponse(task))
}

func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	ctx := c.UserContext()

	taskID, ok, err := parseID(c, "id", "task")
	if !ok {
		return err
	}

	var req dto.UpdateTaskRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	logger.InfoContext(ctx, "Task update attempt", "task_id", taskID)

	task, err := h.taskService.UpdateTask(ctx, middleware.CurrentUserID(c), taskID, &req)
	if err != nil {
		return serviceError(c, "Task update", err)
	}

	logger.InfoContext(ctx, "Task updated", "task_id", taskID)
	return utils.SuccessResponse(c, dto.TaskToTaskResponse(task))
}

func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	ctx := c.UserContext()

	taskID, ok, err := parseID(c, "id", "task")
	if !ok {
		return err
	}

	logger.InfoContext(ctx, "Task deletion attempt", "task_id", taskID)

	if _, err := h.taskService.DeleteTask(ctx, middleware.CurrentUserID(c), taskID); err != nil {
		return serviceError(c, "Task deletion", err)
	}

	logger.InfoContext(ctx, "Task deleted", "task_id", taskID)
	return utils.SuccessResponse(c, dto.DeletedResponse{ID: taskID})
}

// MoveTask ตอบ {task, affectedTasks} เสมอ แม้เป็น no-op
func (h *TaskHandler) MoveTask(c *fiber.Ctx) error {
	ctx := c.UserContext()

	taskID, ok, err := parseID(c, "id", "task")
	if !ok {
		return err
	}

	var req dto.MoveTaskRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	logger.InfoContext(ctx, "Task move attempt",
		"task_id", taskID,
		"dest_column", req.DestColumnID,
		"dest_index", req.DestIndex,
	)

	result, err := h.taskService.MoveTask(ctx, middleware.CurrentUserID(c), taskID, &req)
	if err != nil {
		return serviceError(c, "Task move", err)
	}

	return utils.SuccessResponse(c, dto.MoveTaskResponse{
		Task:          *dto.TaskToTaskResponse(result.Task),
		AffectedTasks: dto.TasksToTaskResponses(result.AffectedTasks),
	})
}

func (h *TaskHandler) ListBoardTasks(c *fiber.Ctx) error {
	boardID, ok, err := parseID(c, "id", "board")
	if !ok {
		return err
	}

	tasks, err := h.taskService.ListBoardTasks(c.UserContext(), boardID)
	if err != nil {
		return serviceError(c, "Task listing", err)
	}
	return utils.SuccessResponse(c, dto.TasksToTaskResponses(tasks))
}
