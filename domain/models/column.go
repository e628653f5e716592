package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column คอลัมน์ในบอร์ด (เช่น To Do, In Progress, Done)
// ลำดับของ task ในคอลัมน์ไม่ได้เก็บที่นี่ ให้ query จาก tasks.position
type Column struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index:idx_columns_board_position,priority:1"`
	Title     string    `gorm:"size:100;not null"`
	Color     string    `gorm:"size:16"`
	Order     int       `gorm:"column:position;not null;default:0;index:idx_columns_board_position,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Column) TableName() string {
	return "board_columns"
}

func (c *Column) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
