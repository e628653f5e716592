package replica

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/models"
	"taskboard/domain/ordering"
)

type ActionKind string

const (
	ActionCreateTask ActionKind = "create-task"
	ActionUpdateTask ActionKind = "update-task"
	ActionDeleteTask ActionKind = "delete-task"
	ActionMoveTask   ActionKind = "move-task"
)

// Action is one optimistic mutation between Issued and Confirmed/RolledBack.
// Updates and deletes keep the whole pre-image of their task in before; a
// move keeps only the position of every task it shifted in slots.
type Action struct {
	ID       uuid.UUID
	Kind     ActionKind
	TaskID   uuid.UUID // placeholder id for creates
	IssuedAt time.Time

	before map[uuid.UUID]dto.TaskResponse
	slots  map[uuid.UUID]slot
}

// slot is the part of a task a move changes.
type slot struct {
	ColumnID  uuid.UUID
	Order     int
	UpdatedAt time.Time
}

func slotOf(t dto.TaskResponse) slot {
	return slot{ColumnID: t.ColumnID, Order: t.Order, UpdatedAt: t.UpdatedAt}
}

func newAction(kind ActionKind, taskID uuid.UUID) *Action {
	return &Action{
		ID:       uuid.New(),
		Kind:     kind,
		TaskID:   taskID,
		IssuedAt: time.Now().UTC(),
		before:   make(map[uuid.UUID]dto.TaskResponse),
		slots:    make(map[uuid.UUID]slot),
	}
}

// track registers a as in flight; caller holds the lock
func (s *Store) track(a *Action) {
	s.pending[a.ID] = a
	s.busy[a.TaskID] = a.ID
}

func (s *Store) checkIssue(taskID uuid.UUID) (dto.TaskResponse, error) {
	if s.closed {
		return dto.TaskResponse{}, ErrClosed
	}
	t, ok := s.tasks[taskID]
	if !ok {
		return dto.TaskResponse{}, ErrTaskUnknown
	}
	if _, busy := s.busy[taskID]; busy {
		return dto.TaskResponse{}, ErrTaskBusy
	}
	return t, nil
}

// IssueCreate inserts a placeholder task at the end of its column.
func (s *Store) IssueCreate(req dto.CreateTaskRequest) (*Action, dto.TaskResponse, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, dto.TaskResponse{}, ErrClosed
	}
	if _, ok := s.columns[req.ColumnID]; !ok {
		s.mu.Unlock()
		return nil, dto.TaskResponse{}, ErrColumnUnknown
	}

	now := time.Now().UTC()
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	placeholder := dto.TaskResponse{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		BoardID:     s.boardID,
		ColumnID:    req.ColumnID,
		Order:       len(s.columnTasksLocked(req.ColumnID)),
		Priority:    priority,
		DueDate:     req.DueDate,
		Tags:        append([]string{}, req.Tags...),
		Assignees:   s.resolveUsersLocked(req.AssigneeIDs),
		CreatedBy:   s.localUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[placeholder.ID] = cloneTask(placeholder)

	a := newAction(ActionCreateTask, placeholder.ID)
	s.track(a)
	s.mu.Unlock()
	s.changed()
	return a, placeholder, nil
}

// IssueUpdate applies the non-nil fields of req to the local task.
func (s *Store) IssueUpdate(taskID uuid.UUID, req dto.UpdateTaskRequest) (*Action, error) {
	s.mu.Lock()
	t, err := s.checkIssue(taskID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	a := newAction(ActionUpdateTask, taskID)
	a.before[taskID] = cloneTask(t)

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		d := *req.DueDate
		t.DueDate = &d
	}
	if req.Tags != nil {
		t.Tags = append([]string{}, (*req.Tags)...)
	}
	if req.AssigneeIDs != nil {
		t.Assignees = s.resolveUsersLocked(*req.AssigneeIDs)
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[taskID] = t

	s.track(a)
	s.mu.Unlock()
	s.changed()
	return a, nil
}

// IssueDelete removes the task locally, keeping it for rollback.
func (s *Store) IssueDelete(taskID uuid.UUID) (*Action, error) {
	s.mu.Lock()
	t, err := s.checkIssue(taskID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.removeTask(taskID)
	a := newAction(ActionDeleteTask, taskID)
	a.before[taskID] = cloneTask(t)
	s.track(a)
	s.mu.Unlock()
	s.changed()
	return a, nil
}

// IssueMove reorders the local columns the way the server will. A nil
// action means the drop lands on the task's own position.
func (s *Store) IssueMove(taskID, destColumnID uuid.UUID, destIndex int) (*Action, dto.MoveTaskRequest, error) {
	s.mu.Lock()
	t, err := s.checkIssue(taskID)
	if err != nil {
		s.mu.Unlock()
		return nil, dto.MoveTaskRequest{}, err
	}
	if _, ok := s.columns[destColumnID]; !ok {
		s.mu.Unlock()
		return nil, dto.MoveTaskRequest{}, ErrColumnUnknown
	}

	src := s.columnTasksLocked(t.ColumnID)
	var dst []dto.TaskResponse
	if destColumnID != t.ColumnID {
		dst = s.columnTasksLocked(destColumnID)
	}
	plan, err := ordering.Move(toItems(src), toItems(dst), ordering.Request{
		TaskID:         taskID,
		SourceColumnID: t.ColumnID,
		DestColumnID:   destColumnID,
		SourceIndex:    indexOfTask(src, taskID),
		DestIndex:      destIndex,
	})
	if err != nil {
		s.mu.Unlock()
		return nil, dto.MoveTaskRequest{}, err
	}

	req := dto.MoveTaskRequest{
		SourceColumnID: plan.Request.SourceColumnID,
		DestColumnID:   plan.Request.DestColumnID,
		SourceIndex:    plan.Request.SourceIndex,
		DestIndex:      plan.Request.DestIndex,
	}
	if plan.NoOp() {
		s.mu.Unlock()
		return nil, req, nil
	}

	a := newAction(ActionMoveTask, taskID)
	now := time.Now().UTC()
	for _, c := range plan.Changes() {
		task := s.tasks[c.ID]
		a.slots[c.ID] = slotOf(task)
		task.ColumnID = c.ColumnID
		task.Order = c.Order
		if c.Moved {
			task.UpdatedAt = now
		}
		s.tasks[c.ID] = task
	}

	s.track(a)
	s.mu.Unlock()
	s.changed()
	return a, req, nil
}

// resolve removes a from the pending set and runs fn under the lock.
// It reports false when the store was closed or reloaded meanwhile.
func (s *Store) resolve(a *Action, fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.pending[a.ID]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.pending, a.ID)
	if s.busy[a.TaskID] == a.ID {
		delete(s.busy, a.TaskID)
	}
	fn()
	s.mu.Unlock()
	s.changed()
	return true
}

// ConfirmCreate swaps the placeholder for the server's task.
func (s *Store) ConfirmCreate(a *Action, task dto.TaskResponse) bool {
	return s.resolve(a, func() {
		s.removeTask(a.TaskID)
		s.putTask(task)
	})
}

func (s *Store) ConfirmUpdate(a *Action, task dto.TaskResponse) bool {
	return s.resolve(a, func() {
		s.putTask(task)
	})
}

func (s *Store) ConfirmDelete(a *Action) bool {
	return s.resolve(a, func() {
		s.removeTask(a.TaskID)
	})
}

// ConfirmMove replaces every column the server reported with its full
// post-move content. Tasks the local guess shifted in columns the server
// did not report go back to their prior position.
func (s *Store) ConfirmMove(a *Action, res dto.MoveTaskResponse) bool {
	return s.resolve(a, func() {
		all := make([]dto.TaskResponse, 0, len(res.AffectedTasks)+1)
		all = append(all, res.Task)
		all = append(all, res.AffectedTasks...)
		reported := make(map[uuid.UUID]bool)
		cols := make([]uuid.UUID, 0, 2)
		for _, t := range all {
			if !reported[t.ColumnID] {
				reported[t.ColumnID] = true
				cols = append(cols, t.ColumnID)
			}
		}
		for id, pos := range a.slots {
			if id != a.TaskID && !reported[pos.ColumnID] {
				s.restoreSlot(id, pos, false)
			}
		}
		s.replaceColumns(cols, all)
	})
}

// Rollback applies the inverse of a. Tasks deleted remotely meanwhile stay
// deleted, except the task a itself deleted. Restored copies are written
// straight into the replica: they are not authoritative, so other pending
// actions keep their own pre-images.
func (s *Store) Rollback(a *Action) bool {
	return s.resolve(a, func() {
		switch a.Kind {
		case ActionCreateTask:
			s.removeTask(a.TaskID)
		case ActionDeleteTask:
			if pre, ok := a.before[a.TaskID]; ok {
				s.tasks[pre.ID] = cloneTask(pre)
			}
		case ActionUpdateTask:
			pre, ok := a.before[a.TaskID]
			cur, exists := s.tasks[a.TaskID]
			if !ok || !exists {
				return
			}
			// update ไม่ได้ย้ายตำแหน่ง: คงตำแหน่งปัจจุบันไว้
			pre = cloneTask(pre)
			pre.ColumnID, pre.Order = cur.ColumnID, cur.Order
			s.tasks[pre.ID] = pre
		case ActionMoveTask:
			for id, pos := range a.slots {
				s.restoreSlot(id, pos, id == a.TaskID)
			}
		}
	})
}

// restoreSlot puts a task back at pos; caller holds the lock. Only the moved
// task had its updatedAt bumped by the move.
func (s *Store) restoreSlot(id uuid.UUID, pos slot, moved bool) {
	t, ok := s.tasks[id]
	if !ok {
		return
	}
	t.ColumnID, t.Order = pos.ColumnID, pos.Order
	if moved {
		t.UpdatedAt = pos.UpdatedAt
	}
	s.tasks[id] = t
}

// resolveUsersLocked maps ids to board members; unknown ids keep only the id.
func (s *Store) resolveUsersLocked(ids []uuid.UUID) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		user := dto.UserResponse{ID: id}
		if s.board != nil {
			for _, m := range s.board.Members {
				if m.ID == id {
					user = m
					break
				}
			}
		}
		out = append(out, user)
	}
	return out
}

func indexOfTask(tasks []dto.TaskResponse, id uuid.UUID) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
