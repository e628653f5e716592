package replica

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/pkg/logger"
)

// API is the RPC surface the mutator drives. apiclient.Client implements it.
type API interface {
	CreateTask(ctx context.Context, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	UpdateTask(ctx context.Context, id uuid.UUID, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	MoveTask(ctx context.Context, id uuid.UUID, req *dto.MoveTaskRequest) (*dto.MoveTaskResponse, error)
}

// Failure describes an action the server rejected after it was rolled back.
type Failure struct {
	Kind   ActionKind
	TaskID uuid.UUID
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.TaskID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Notifier is told about every rolled back action.
type Notifier func(Failure)

// Mutator runs each change as issue → RPC → confirm or rollback. Calls block
// until the server answers; the replica already shows the change meanwhile.
type Mutator struct {
	store  *Store
	api    API
	notify Notifier
	log    *slog.Logger
}

func NewMutator(store *Store, api API, notify Notifier) *Mutator {
	return &Mutator{
		store:  store,
		api:    api,
		notify: notify,
		log:    logger.Named("replica"),
	}
}

func (m *Mutator) Store() *Store { return m.store }

// CreateTask shows a placeholder at the bottom of the column until the
// server returns the real task.
func (m *Mutator) CreateTask(ctx context.Context, req dto.CreateTaskRequest) (dto.TaskResponse, error) {
	a, placeholder, err := m.store.IssueCreate(req)
	if err != nil {
		return dto.TaskResponse{}, err
	}
	req.BoardID = placeholder.BoardID

	created, err := m.api.CreateTask(ctx, &req)
	if err != nil {
		m.fail(ctx, a, err)
		return dto.TaskResponse{}, err
	}
	m.store.ConfirmCreate(a, *created)
	return *created, nil
}

func (m *Mutator) UpdateTask(ctx context.Context, id uuid.UUID, req dto.UpdateTaskRequest) (dto.TaskResponse, error) {
	a, err := m.store.IssueUpdate(id, req)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	updated, err := m.api.UpdateTask(ctx, id, &req)
	if err != nil {
		m.fail(ctx, a, err)
		return dto.TaskResponse{}, err
	}
	m.store.ConfirmUpdate(a, *updated)
	return *updated, nil
}

func (m *Mutator) DeleteTask(ctx context.Context, id uuid.UUID) error {
	a, err := m.store.IssueDelete(id)
	if err != nil {
		return err
	}

	if err := m.api.DeleteTask(ctx, id); err != nil {
		m.fail(ctx, a, err)
		return err
	}
	m.store.ConfirmDelete(a)
	return nil
}

// MoveTask reorders locally, then replaces both columns with the server's
// affected set. A drop on the task's own slot sends nothing.
func (m *Mutator) MoveTask(ctx context.Context, id, destColumnID uuid.UUID, destIndex int) (dto.MoveTaskResponse, error) {
	a, req, err := m.store.IssueMove(id, destColumnID, destIndex)
	if err != nil {
		return dto.MoveTaskResponse{}, err
	}
	if a == nil {
		task, _ := m.store.Task(id)
		return dto.MoveTaskResponse{Task: task, AffectedTasks: m.store.ColumnTasks(task.ColumnID)}, nil
	}

	res, err := m.api.MoveTask(ctx, id, &req)
	if err != nil {
		m.fail(ctx, a, err)
		return dto.MoveTaskResponse{}, err
	}
	m.store.ConfirmMove(a, *res)
	return *res, nil
}

// fail rolls a back and notifies; nothing happens once the store is closed.
func (m *Mutator) fail(ctx context.Context, a *Action, err error) {
	if !m.store.Rollback(a) {
		m.log.DebugContext(ctx, "Discarded late failure", "action", a.Kind, "task_id", a.TaskID)
		return
	}
	m.log.WarnContext(ctx, "Rolled back optimistic change",
		"action", a.Kind,
		"task_id", a.TaskID,
		"error", err,
	)
	if m.notify != nil {
		m.notify(Failure{Kind: a.Kind, TaskID: a.TaskID, Err: err})
	}
}
