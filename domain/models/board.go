package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Board struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid"`
	Title       string    `gorm:"size:200;not null"`
	Slug        string    `gorm:"size:220;index"`
	Description string    `gorm:"type:text"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index"`
	Members     []User    `gorm:"many2many:board_members;"`
	Columns     []Column  `gorm:"foreignKey:BoardID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Board) TableName() string {
	return "boards"
}

func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// MemberIDs returns the ids of the loaded members.
func (b *Board) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Members))
	for _, m := range b.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
