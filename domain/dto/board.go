package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateBoardRequest struct {
	Title       string      `json:"title" validate:"required,min=1,max=200"`
	Description string      `json:"description" validate:"omitempty,max=2000"`
	MemberIDs   []uuid.UUID `json:"memberIds" validate:"omitempty,max=100"`
	// Columns เริ่มต้น ถ้าไม่ส่งมาจะใช้ To Do / In Progress / Done
	Columns []string `json:"columns" validate:"omitempty,max=20,dive,min=1,max=100"`
}

type UpdateBoardRequest struct {
	Title       *string      `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	MemberIDs   *[]uuid.UUID `json:"memberIds,omitempty"`
}

type BoardResponse struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	OwnerID     uuid.UUID        `json:"ownerId"`
	Members     []UserResponse   `json:"members"`
	Columns     []ColumnResponse `json:"columns"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type PresenceResponse struct {
	BoardID uuid.UUID   `json:"boardId"`
	UserIDs []uuid.UUID `json:"userIds"`
}
