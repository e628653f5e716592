package nats

import (
	"fmt"

	"github.com/google/uuid"
)

// Subjects
const (
	// SubjectBoardPrefix board.{boardID}.events
	SubjectBoardPrefix = "board"
	// SubjectBoardAll ทุก board event (> = ทุก token ที่ตามมา)
	SubjectBoardAll = SubjectBoardPrefix + ".>"
)

// BoardSubject returns the subject a board's events are published on.
func BoardSubject(boardID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.events", SubjectBoardPrefix, boardID)
}
