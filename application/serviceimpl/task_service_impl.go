package serviceimpl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/events"
	"taskboard/domain/models"
	"taskboard/domain/ordering"
	"taskboard/domain/ports"
	"taskboard/domain/repositories"
	"taskboard/domain/services"
	"taskboard/pkg/logger"
)

// maxLockAttempts จำนวนครั้งที่ลองล็อก column ใหม่ ถ้า task ถูกย้ายระหว่างรอ lock
const maxLockAttempts = 3

type TaskServiceImpl struct {
	tx         repositories.Transactor
	taskRepo   repositories.TaskRepository
	columnRepo repositories.ColumnRepository
	boardRepo  repositories.BoardRepository
	userRepo   repositories.UserRepository
	cache      ports.BoardCachePort
	events     eventSink
}

func NewTaskService(
	tx repositories.Transactor,
	taskRepo repositories.TaskRepository,
	columnRepo repositories.ColumnRepository,
	boardRepo repositories.BoardRepository,
	userRepo repositories.UserRepository,
	publisher ports.BoardEventPublisherPort,
) *TaskServiceImpl {
	return &TaskServiceImpl{
		tx:         tx,
		taskRepo:   taskRepo,
		columnRepo: columnRepo,
		boardRepo:  boardRepo,
		userRepo:   userRepo,
		events:     eventSink{publisher: publisher},
	}
}

// SetCache เปิดใช้ cache รายการ task ของ board (optional)
func (s *TaskServiceImpl) SetCache(cache ports.BoardCachePort) {
	s.cache = cache
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, userID uuid.UUID, req *dto.CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, services.NewValidationError("title", "title is required")
	}

	column, err := s.columnRepo.GetByID(ctx, req.ColumnID)
	if err != nil {
		logger.WarnContext(ctx, "Column not found for task creation", "column_id", req.ColumnID)
		return nil, notFound(err, services.ErrColumnNotFound)
	}
	if column.BoardID != req.BoardID {
		return nil, services.NewValidationError("columnId", "column does not belong to board")
	}

	assignees, err := s.resolveUsers(ctx, req.AssigneeIDs)
	if err != nil {
		return nil, err
	}

	task := dto.CreateTaskRequestToTask(req)
	task.ID = uuid.New()
	task.Title = title
	task.CreatedBy = userID
	task.Tags = normalizeTags(task.Tags)
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.columnRepo.LockForUpdate(ctx, column.ID); err != nil {
			return err
		}
		// task ใหม่ต่อท้าย column เสมอ
		next, err := s.taskRepo.NextOrder(ctx, column.ID)
		if err != nil {
			return err
		}
		task.Order = next
		if err := s.taskRepo.Create(ctx, task); err != nil {
			return err
		}
		if len(assignees) > 0 {
			return s.taskRepo.ReplaceAssignees(ctx, task, assignees)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create task", "board_id", req.BoardID, "error", err)
		return nil, wrap("create task", err)
	}

	created, err := s.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		return nil, wrap("reload task", err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", created.ID, "board_id", created.BoardID, "column_id", created.ColumnID, "order", created.Order)

	s.invalidate(ctx, created.BoardID)
	s.events.emit(ctx, events.TaskCreated, created.BoardID, userID, &events.TaskPayload{Task: *dto.TaskToTaskResponse(created)})
	return created, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, services.ErrTaskNotFound)
	}
	return task, nil
}

func (s *TaskServiceImpl) ListBoardTasks(ctx context.Context, boardID uuid.UUID) ([]*models.Task, error) {
	if _, err := s.boardRepo.GetByID(ctx, boardID); err != nil {
		return nil, notFound(err, services.ErrBoardNotFound)
	}

	load := func() ([]*models.Task, error) {
		return s.taskRepo.ListByBoard(ctx, boardID)
	}
	if s.cache == nil {
		return load()
	}

	tasks, err := s.cache.GetOrLoadTasks(ctx, boardID, load)
	if err != nil {
		logger.WarnContext(ctx, "Board task cache unavailable, reading database", "board_id", boardID, "error", err)
		return load()
	}
	return tasks, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		logger.WarnContext(ctx, "Task not found for update", "task_id", taskID)
		return nil, notFound(err, services.ErrTaskNotFound)
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, services.NewValidationError("title", "title cannot be empty")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Priority != nil {
		if models.PriorityRank(*req.Priority) == 0 {
			return nil, services.NewValidationError("priority", "unknown priority")
		}
		fields["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		fields["due_date"] = req.DueDate.UTC()
	}
	if req.Tags != nil {
		// map update ข้าม serializer ของ gorm จึง encode เอง
		raw, err := sonic.Marshal(normalizeTags(*req.Tags))
		if err != nil {
			return nil, wrap("encode tags", err)
		}
		fields["tags"] = string(raw)
	}

	var assignees []*models.User
	if req.AssigneeIDs != nil {
		if assignees, err = s.resolveUsers(ctx, *req.AssigneeIDs); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.taskRepo.UpdateFields(ctx, taskID, fields); err != nil {
			return err
		}
		if req.AssigneeIDs != nil {
			return s.taskRepo.ReplaceAssignees(ctx, task, assignees)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to update task", "task_id", taskID, "error", err)
		return nil, wrap("update task", err)
	}

	updated, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, services.ErrTaskNotFound)
	}

	logger.InfoContext(ctx, "Task updated", "task_id", taskID)

	s.invalidate(ctx, updated.BoardID)
	s.events.emit(ctx, events.TaskUpdated, updated.BoardID, userID, &events.TaskPayload{Task: *dto.TaskToTaskResponse(updated)})
	return updated, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) (*models.Task, error) {
	var deleted *models.Task
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		task, err := s.lockTaskColumns(ctx, taskID, uuid.Nil)
		if err != nil {
			return err
		}
		if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
			return err
		}
		deleted = task
		// ปิดช่องว่างของ position ใน column เดิม
		return s.taskRepo.ShiftOrder(ctx, task.ColumnID, task.Order+1, -1)
	})
	if err != nil {
		if services.IsNotFound(err) {
			logger.WarnContext(ctx, "Task not found for deletion", "task_id", taskID)
			return nil, err
		}
		logger.ErrorContext(ctx, "Failed to delete task", "task_id", taskID, "error", err)
		return nil, wrap("delete task", err)
	}

	logger.InfoContext(ctx, "Task deleted", "task_id", taskID, "column_id", deleted.ColumnID)

	s.invalidate(ctx, deleted.BoardID)
	s.events.emit(ctx, events.TaskDeleted, deleted.BoardID, userID, &events.TaskDeletedPayload{TaskID: deleted.ID, ColumnID: deleted.ColumnID})
	return deleted, nil
}

// MoveTask recomputes positions from the persisted order inside one
// transaction; the caller's source column and index are advisory only.
func (s *TaskServiceImpl) MoveTask(ctx context.Context, userID, taskID uuid.UUID, req *dto.MoveTaskRequest) (*services.MoveResult, error) {
	dest, err := s.columnRepo.GetByID(ctx, req.DestColumnID)
	if err != nil {
		return nil, notFound(err, services.ErrColumnNotFound)
	}

	var plan ordering.Plan
	var boardID uuid.UUID
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		task, err := s.lockTaskColumns(ctx, taskID, dest.ID)
		if err != nil {
			return err
		}
		if task.BoardID != dest.BoardID {
			return services.NewValidationError("destColumnId", "column belongs to another board")
		}
		boardID = task.BoardID

		source, err := s.taskRepo.ListByColumn(ctx, task.ColumnID)
		if err != nil {
			return err
		}
		var target []*models.Task
		if dest.ID != task.ColumnID {
			if target, err = s.taskRepo.ListByColumn(ctx, dest.ID); err != nil {
				return err
			}
		}

		plan, err = ordering.Move(toItems(source), toItems(target), ordering.Request{
			TaskID:         taskID,
			SourceColumnID: req.SourceColumnID,
			DestColumnID:   dest.ID,
			SourceIndex:    req.SourceIndex,
			DestIndex:      req.DestIndex,
		})
		if err != nil {
			return fmt.Errorf("compute move: %w", err)
		}
		if plan.NoOp() {
			return nil
		}
		return s.taskRepo.ApplyOrder(ctx, toOrderUpdates(plan.Changes()))
	})
	if err != nil {
		if services.IsNotFound(err) {
			logger.WarnContext(ctx, "Task not found for move", "task_id", taskID)
			return nil, err
		}
		logger.ErrorContext(ctx, "Failed to move task", "task_id", taskID, "error", err)
		return nil, wrap("move task", err)
	}

	if plan.Stale {
		logger.WarnContext(ctx, "Move request used a stale position",
			"task_id", taskID,
			"client_source_column", req.SourceColumnID,
			"client_source_index", req.SourceIndex,
			"source_column", plan.Request.SourceColumnID,
			"source_index", plan.Request.SourceIndex,
		)
	}

	result, err := s.loadMoveResult(ctx, taskID, plan)
	if err != nil {
		return nil, err
	}
	if plan.NoOp() {
		logger.InfoContext(ctx, "Task move was a no-op", "task_id", taskID)
		return result, nil
	}

	logger.InfoContext(ctx, "Task moved",
		"task_id", taskID,
		"source_column", plan.Request.SourceColumnID,
		"dest_column", plan.Request.DestColumnID,
		"dest_index", plan.Request.DestIndex,
		"rows_written", len(plan.Changes()),
	)

	s.invalidate(ctx, boardID)
	s.events.emit(ctx, events.TaskMoved, boardID, userID, &events.TaskMovedPayload{
		Task:           *dto.TaskToTaskResponse(result.Task),
		AffectedTasks:  dto.TasksToTaskResponses(result.AffectedTasks),
		SourceColumnID: plan.Request.SourceColumnID,
		DestColumnID:   plan.Request.DestColumnID,
	})
	return result, nil
}

// lockTaskColumns locks the task's current column (and extra, if set) and
// returns the task as seen under that lock.
func (s *TaskServiceImpl) lockTaskColumns(ctx context.Context, taskID, extra uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err, services.ErrTaskNotFound)
	}
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		ids := []uuid.UUID{task.ColumnID}
		if extra != uuid.Nil && extra != task.ColumnID {
			ids = append(ids, extra)
		}
		if err := s.columnRepo.LockForUpdate(ctx, ids...); err != nil {
			return nil, err
		}
		current, err := s.taskRepo.GetByID(ctx, taskID)
		if err != nil {
			return nil, notFound(err, services.ErrTaskNotFound)
		}
		if current.ColumnID == task.ColumnID {
			return current, nil
		}
		task = current
	}
	return nil, fmt.Errorf("task %s changed column %d times while locking", taskID, maxLockAttempts)
}

func (s *TaskServiceImpl) loadMoveResult(ctx context.Context, taskID uuid.UUID, plan ordering.Plan) (*services.MoveResult, error) {
	items := plan.Affected()
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	tasks, err := s.taskRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, wrap("load affected tasks", err)
	}
	byID := make(map[uuid.UUID]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	result := &services.MoveResult{NoOp: plan.NoOp(), AffectedTasks: make([]*models.Task, 0, len(items))}
	for _, it := range items {
		t, ok := byID[it.ID]
		if !ok {
			continue
		}
		result.AffectedTasks = append(result.AffectedTasks, t)
		if t.ID == taskID {
			result.Task = t
		}
	}
	if result.Task == nil {
		return nil, services.ErrTaskNotFound
	}
	return result, nil
}

func (s *TaskServiceImpl) resolveUsers(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, wrap("resolve assignees", err)
	}
	if len(users) != len(unique) {
		return nil, services.NewValidationError("assigneeIds", "unknown user in assignees")
	}
	return users, nil
}

func (s *TaskServiceImpl) invalidate(ctx context.Context, boardID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBoard(ctx, boardID); err != nil {
		logger.WarnContext(ctx, "Failed to invalidate board cache", "board_id", boardID, "error", err)
	}
}

func toItems(tasks []*models.Task) []ordering.Item {
	items := make([]ordering.Item, len(tasks))
	for i, t := range tasks {
		items[i] = ordering.Item{ID: t.ID, ColumnID: t.ColumnID, Order: t.Order, CreatedAt: t.CreatedAt}
	}
	return items
}

func toOrderUpdates(changes []ordering.Change) []repositories.OrderUpdate {
	updates := make([]repositories.OrderUpdate, len(changes))
	for i, ch := range changes {
		updates[i] = repositories.OrderUpdate{ID: ch.ID, ColumnID: ch.ColumnID, Order: ch.Order, Touch: ch.Moved}
	}
	return updates
}

// normalizeTags trims, drops empties and de-duplicates while keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
