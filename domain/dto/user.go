package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateUserRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Email  string `json:"email" validate:"required,email"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}
