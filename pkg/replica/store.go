// Package replica is the client-side copy of one board: its columns and
// tasks, the set of viewers, and the optimistic actions still waiting for
// the server.
//
// All state lives behind one mutex. Network calls never happen while the
// lock is held; the Mutator issues an action, performs the RPC, then
// confirms or rolls back.
package replica

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/ordering"
)

var (
	ErrClosed        = errors.New("replica store is closed")
	ErrTaskUnknown   = errors.New("task is not in the replica")
	ErrColumnUnknown = errors.New("column is not in the replica")
	ErrTaskBusy      = errors.New("task already has a pending change")
)

type Store struct {
	mu sync.Mutex

	localUser uuid.UUID
	boardID   uuid.UUID
	board     *dto.BoardResponse
	columns   map[uuid.UUID]dto.ColumnResponse
	tasks     map[uuid.UUID]dto.TaskResponse
	viewers   map[uuid.UUID]struct{}
	typing    map[uuid.UUID]map[uuid.UUID]struct{} // task -> users
	deleted   bool

	pending map[uuid.UUID]*Action
	busy    map[uuid.UUID]uuid.UUID // task -> action

	closed   bool
	onChange func()
}

// NewStore creates an empty replica for localUser; call Load before use.
func NewStore(localUser uuid.UUID) *Store {
	return &Store{
		localUser: localUser,
		columns:   make(map[uuid.UUID]dto.ColumnResponse),
		tasks:     make(map[uuid.UUID]dto.TaskResponse),
		viewers:   make(map[uuid.UUID]struct{}),
		typing:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		pending:   make(map[uuid.UUID]*Action),
		busy:      make(map[uuid.UUID]uuid.UUID),
	}
}

// OnChange registers fn to run after every state change, outside the lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the replica with authoritative state. Pending actions are
// dropped: their responses will be discarded.
func (s *Store) Load(board dto.BoardResponse, tasks []dto.TaskResponse) {
	s.mu.Lock()
	s.boardID = board.ID
	b := board
	s.board = &b
	s.deleted = false
	s.columns = make(map[uuid.UUID]dto.ColumnResponse, len(board.Columns))
	for _, c := range board.Columns {
		s.columns[c.ID] = c
	}
	s.tasks = make(map[uuid.UUID]dto.TaskResponse, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = cloneTask(t)
	}
	s.viewers = make(map[uuid.UUID]struct{})
	s.typing = make(map[uuid.UUID]map[uuid.UUID]struct{})
	s.pending = make(map[uuid.UUID]*Action)
	s.busy = make(map[uuid.UUID]uuid.UUID)
	s.mu.Unlock()
	s.changed()
}

// Close marks the store unmounted; later responses and events are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.onChange = nil
	s.mu.Unlock()
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) LocalUser() uuid.UUID { return s.localUser }

func (s *Store) BoardID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardID
}

// Board returns the board with its columns in display order.
func (s *Store) Board() (dto.BoardResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil || s.deleted {
		return dto.BoardResponse{}, false
	}
	b := *s.board
	b.Columns = s.sortedColumnsLocked()
	return b, true
}

// Deleted reports that a board-deleted event was received.
func (s *Store) Deleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}

func (s *Store) Columns() []dto.ColumnResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedColumnsLocked()
}

// Tasks returns a copy of every task, canonical order within each column.
func (s *Store) Tasks() []dto.TaskResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dto.TaskResponse, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, cloneTask(t))
	}
	sortCanonical(out)
	return out
}

func (s *Store) Task(id uuid.UUID) (dto.TaskResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return dto.TaskResponse{}, false
	}
	return cloneTask(t), true
}

// ColumnTasks returns the canonical sequence of one column.
func (s *Store) ColumnTasks(columnID uuid.UUID) []dto.TaskResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columnTasksLocked(columnID)
}

// Viewers returns the user ids currently viewing the board, sorted.
func (s *Store) Viewers() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.viewers)
}

// Typing returns the users typing on taskID, sorted.
func (s *Store) Typing(taskID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.typing[taskID])
}

// Pending returns the number of in-flight optimistic actions.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) sortedColumnsLocked() []dto.ColumnResponse {
	out := make([]dto.ColumnResponse, 0, len(s.columns))
	for _, c := range s.columns {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) columnTasksLocked(columnID uuid.UUID) []dto.TaskResponse {
	out := make([]dto.TaskResponse, 0)
	for _, t := range s.tasks {
		if t.ColumnID == columnID {
			out = append(out, cloneTask(t))
		}
	}
	sortCanonical(out)
	return out
}

// putTask overwrites a whole task with an authoritative copy and refreshes
// any pending pre-image so a later rollback restores the newest server state.
func (s *Store) putTask(t dto.TaskResponse) {
	t = cloneTask(t)
	s.tasks[t.ID] = t
	for _, a := range s.pending {
		if _, ok := a.before[t.ID]; ok {
			a.before[t.ID] = t
		}
		if _, ok := a.slots[t.ID]; ok {
			a.slots[t.ID] = slotOf(t)
		}
	}
}

func (s *Store) removeTask(id uuid.UUID) {
	delete(s.tasks, id)
	delete(s.typing, id)
	for _, a := range s.pending {
		delete(a.before, id)
		delete(a.slots, id)
	}
}

// replaceColumns makes tasks the full content of the given columns: local
// tasks of those columns missing from the list are dropped, unless they are
// placeholders of a create still in flight.
func (s *Store) replaceColumns(columnIDs []uuid.UUID, tasks []dto.TaskResponse) {
	keep := make(map[uuid.UUID]bool, len(tasks))
	for _, t := range tasks {
		keep[t.ID] = true
	}
	cols := make(map[uuid.UUID]bool, len(columnIDs))
	for _, id := range columnIDs {
		cols[id] = true
	}
	for id, t := range s.tasks {
		if cols[t.ColumnID] && !keep[id] && !s.isPlaceholder(id) {
			s.removeTask(id)
		}
	}
	for _, t := range tasks {
		s.putTask(t)
	}
}

func (s *Store) isPlaceholder(id uuid.UUID) bool {
	actionID, ok := s.busy[id]
	if !ok {
		return false
	}
	a := s.pending[actionID]
	return a != nil && a.Kind == ActionCreateTask
}

func toItems(tasks []dto.TaskResponse) []ordering.Item {
	items := make([]ordering.Item, len(tasks))
	for i, t := range tasks {
		items[i] = ordering.Item{ID: t.ID, ColumnID: t.ColumnID, Order: t.Order, CreatedAt: t.CreatedAt}
	}
	return items
}

func sortCanonical(tasks []dto.TaskResponse) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.ColumnID != b.ColumnID {
			return a.ColumnID.String() < b.ColumnID.String()
		}
		return ordering.Less(
			ordering.Item{ID: a.ID, Order: a.Order, CreatedAt: a.CreatedAt},
			ordering.Item{ID: b.ID, Order: b.Order, CreatedAt: b.CreatedAt},
		)
	})
}

func cloneTask(t dto.TaskResponse) dto.TaskResponse {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.Assignees != nil {
		t.Assignees = append([]dto.UserResponse(nil), t.Assignees...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
