package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateColumnRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type UpdateColumnRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

type ColumnResponse struct {
	ID        uuid.UUID `json:"id"`
	BoardID   uuid.UUID `json:"boardId"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
