package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// priorityRank ใช้เรียงลำดับ priority (low < medium < high < urgent)
var priorityRank = map[string]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// PriorityRank returns 0 for unknown priorities.
func PriorityRank(priority string) int {
	return priorityRank[priority]
}

type Task struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"type:text"`
	BoardID     uuid.UUID `gorm:"type:uuid;not null;index:idx_tasks_board_column_position,priority:1"`
	ColumnID    uuid.UUID `gorm:"type:uuid;not null;index:idx_tasks_board_column_position,priority:2"`
	// position ภายใน column (0-based, เรียงด้วย position แล้ว created_at)
	Order     int        `gorm:"column:position;not null;default:0;index:idx_tasks_board_column_position,priority:3"`
	Priority  string     `gorm:"size:16;not null;default:'medium'"`
	DueDate   *time.Time `gorm:"index"`
	Tags      []string   `gorm:"type:text;serializer:json"`
	Assignees []User     `gorm:"many2many:task_assignees;"`
	CreatedBy uuid.UUID  `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate สร้าง ID ฝั่ง application (ใช้ได้ทั้ง postgres และ sqlite)
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return nil
}

// AssigneeIDs returns the ids of the resolved assignees.
func (t *Task) AssigneeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Assignees))
	for _, u := range t.Assignees {
		ids = append(ids, u.ID)
	}
	return ids
}
