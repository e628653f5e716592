package replica

import (
	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/events"
)

// Apply folds one remote event into the replica. It returns false when the
// event was ignored, e.g. an echo of a local change or another board.
//
// Entity events overwrite whole tasks, columns or the board; nothing is
// merged field by field.
func (s *Store) Apply(evt *events.Event) bool {
	if evt == nil {
		return false
	}

	s.mu.Lock()
	if s.closed || evt.BoardID != s.boardID {
		s.mu.Unlock()
		return false
	}
	// board-users ใช้ userId = uuid.Nil จึงไม่ถูกตัดทิ้ง
	if evt.UserID != uuid.Nil && evt.UserID == s.localUser {
		s.mu.Unlock()
		return false
	}

	applied := s.applyLocked(evt)
	s.mu.Unlock()
	if applied {
		s.changed()
	}
	return applied
}

func (s *Store) applyLocked(evt *events.Event) bool {
	switch body := evt.Body.(type) {
	case *events.TaskPayload:
		if body.Task.BoardID != uuid.Nil && body.Task.BoardID != s.boardID {
			return false
		}
		s.putTask(body.Task)

	case *events.TaskDeletedPayload:
		if _, ok := s.tasks[body.TaskID]; !ok {
			return false
		}
		s.removeTask(body.TaskID)

	case *events.TaskMovedPayload:
		cols := []uuid.UUID{body.SourceColumnID}
		if body.DestColumnID != uuid.Nil && body.DestColumnID != body.SourceColumnID {
			cols = append(cols, body.DestColumnID)
		}
		all := make([]dto.TaskResponse, 0, len(body.AffectedTasks)+1)
		all = append(all, body.Task)
		all = append(all, body.AffectedTasks...)
		s.replaceColumns(cols, all)

	case *events.ColumnPayload:
		s.columns[body.Column.ID] = body.Column

	case *events.ColumnDeletedPayload:
		if _, ok := s.columns[body.ColumnID]; !ok {
			return false
		}
		delete(s.columns, body.ColumnID)
		for id, t := range s.tasks {
			if t.ColumnID == body.ColumnID {
				s.removeTask(id)
			}
		}

	case *events.BoardPayload:
		b := body.Board
		if b.Columns == nil && s.board != nil {
			b.Columns = s.board.Columns
		}
		s.board = &b
		for _, c := range body.Board.Columns {
			s.columns[c.ID] = c
		}

	case *events.BoardDeletedPayload:
		s.deleted = true
		s.columns = make(map[uuid.UUID]dto.ColumnResponse)
		for id := range s.tasks {
			s.removeTask(id)
		}

	case *events.PresencePayload:
		if evt.Type == events.UserLeft {
			delete(s.viewers, body.UserID)
			for _, users := range s.typing {
				delete(users, body.UserID)
			}
		} else {
			s.viewers[body.UserID] = struct{}{}
		}

	case *events.BoardUsersPayload:
		s.viewers = make(map[uuid.UUID]struct{}, len(body.UserIDs))
		for _, id := range body.UserIDs {
			if id != s.localUser {
				s.viewers[id] = struct{}{}
			}
		}

	case *events.TypingPayload:
		user := body.UserID
		if user == uuid.Nil {
			user = evt.UserID
		}
		if evt.Type == events.UserStoppedTyping {
			if users, ok := s.typing[body.TaskID]; ok {
				delete(users, user)
				if len(users) == 0 {
					delete(s.typing, body.TaskID)
				}
			}
			return true
		}
		if _, ok := s.tasks[body.TaskID]; !ok {
			return false
		}
		if s.typing[body.TaskID] == nil {
			s.typing[body.TaskID] = make(map[uuid.UUID]struct{})
		}
		s.typing[body.TaskID][user] = struct{}{}

	default:
		return false
	}
	return true
}
