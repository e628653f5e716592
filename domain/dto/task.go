package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string      `json:"title" validate:"required,min=1,max=200"`
	Description string      `json:"description" validate:"omitempty,max=5000"`
	BoardID     uuid.UUID   `json:"boardId" validate:"required"`
	ColumnID    uuid.UUID   `json:"columnId" validate:"required"`
	Priority    string      `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Tags        []string    `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	AssigneeIDs []uuid.UUID `json:"assigneeIds" validate:"omitempty,max=20"`
}

// UpdateTaskRequest partial update (nil = ไม่เปลี่ยน)
type UpdateTaskRequest struct {
	Title       *string      `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=5000"`
	Priority    *string      `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Tags        *[]string    `json:"tags,omitempty" validate:"omitempty"`
	AssigneeIDs *[]uuid.UUID `json:"assigneeIds,omitempty" validate:"omitempty"`
}

// MoveTaskRequest source column/index เป็นมุมมองของ client (server ใช้ค่าจริงจาก DB)
type MoveTaskRequest struct {
	SourceColumnID uuid.UUID `json:"sourceColumnId" validate:"required"`
	DestColumnID   uuid.UUID `json:"destColumnId" validate:"required"`
	SourceIndex    int       `json:"sourceIndex" validate:"min=0"`
	DestIndex      int       `json:"destIndex" validate:"min=0"`
}

type TaskResponse struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	BoardID     uuid.UUID      `json:"boardId"`
	ColumnID    uuid.UUID      `json:"columnId"`
	Order       int            `json:"order"`
	Priority    string         `json:"priority"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Tags        []string       `json:"tags"`
	Assignees   []UserResponse `json:"assignees"`
	CreatedBy   uuid.UUID      `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// AssigneeIDs returns the ids of the embedded assignees.
func (t TaskResponse) AssigneeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(t.Assignees))
	for i, a := range t.Assignees {
		ids[i] = a.ID
	}
	return ids
}

// MoveTaskResponse affectedTasks = ทุก task ใน source และ destination column หลัง move
type MoveTaskResponse struct {
	Task          TaskResponse   `json:"task"`
	AffectedTasks []TaskResponse `json:"affectedTasks"`
}
