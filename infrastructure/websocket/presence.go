package websocket

import (
	"sort"

	"github.com/google/uuid"
)

// presence counts connections per user per board. A user is present while
// at least one of their connections has joined the board.
type presence struct {
	boardsByID map[uuid.UUID]map[uuid.UUID]int
}

func newPresence() *presence {
	return &presence{boardsByID: make(map[uuid.UUID]map[uuid.UUID]int)}
}

// add reports whether this is the user's first connection on the board.
func (p *presence) add(boardID, userID uuid.UUID) bool {
	users := p.boardsByID[boardID]
	if users == nil {
		users = make(map[uuid.UUID]int)
		p.boardsByID[boardID] = users
	}
	users[userID]++
	return users[userID] == 1
}

// remove reports whether the user's last connection left the board.
func (p *presence) remove(boardID, userID uuid.UUID) bool {
	users := p.boardsByID[boardID]
	if users == nil || users[userID] == 0 {
		return false
	}
	users[userID]--
	if users[userID] > 0 {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(p.boardsByID, boardID)
	}
	return true
}

func (p *presence) users(boardID uuid.UUID) []uuid.UUID {
	users := p.boardsByID[boardID]
	out := make([]uuid.UUID, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (p *presence) boards() int {
	return len(p.boardsByID)
}
