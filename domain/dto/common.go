package dto

import "github.com/google/uuid"

// DeletedResponse ยืนยันการลบ (ส่ง id กลับ)
type DeletedResponse struct {
	ID uuid.UUID `json:"id"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	ActiveBoards int    `json:"activeBoards"`
	Connections  int    `json:"connections"`
}
