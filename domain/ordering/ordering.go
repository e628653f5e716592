// Package ordering computes the position of tasks inside board columns.
//
// A column is an ordered sequence of items; the canonical sequence is
// ascending (Order, CreatedAt, ID). Every move renumbers the affected
// columns to contiguous 0..n-1 positions, so the result never depends on
// how the incoming positions were spaced.
package ordering

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotInColumn = errors.New("task is not part of the source column")

// Item is one task as seen by the ordering model.
type Item struct {
	ID        uuid.UUID
	ColumnID  uuid.UUID
	Order     int
	CreatedAt time.Time
}

// Request describes a drag from one position to another.
type Request struct {
	TaskID         uuid.UUID
	SourceColumnID uuid.UUID
	DestColumnID   uuid.UUID
	SourceIndex    int
	DestIndex      int
}

// Change is a row whose column or position differs after the move.
type Change struct {
	ID       uuid.UUID
	ColumnID uuid.UUID
	Order    int
	Moved    bool
}

// Plan is the outcome of Move. Source and Dest hold the full post-move
// sequences; Dest is nil when the task stays in its column.
type Plan struct {
	// Request as executed: source column/index come from the current
	// sequence and DestIndex is clamped.
	Request Request
	Source  []Item
	Dest    []Item
	// Stale is set when the caller's source column or index did not match
	// the current sequence.
	Stale bool

	noop    bool
	changes []Change
}

// NoOp reports a move onto the task's own position.
func (p Plan) NoOp() bool { return p.noop }

// SameColumn reports whether the task stays in its column.
func (p Plan) SameColumn() bool { return p.Dest == nil }

// Changes lists only the rows that need to be written.
func (p Plan) Changes() []Change {
	out := make([]Change, len(p.changes))
	copy(out, p.changes)
	return out
}

// Affected returns the post-move items of every touched column,
// source column first.
func (p Plan) Affected() []Item {
	out := make([]Item, 0, len(p.Source)+len(p.Dest))
	out = append(out, p.Source...)
	return append(out, p.Dest...)
}

// Less is the canonical comparison for items of one column.
func Less(a, b Item) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Sort orders items canonically in place.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}

// Move computes the new sequences for moving req.TaskID.
//
// source must contain the task; its column is taken from the task itself.
// dest is only consulted when req.DestColumnID differs from that column.
// Neither slice is modified.
func Move(source, dest []Item, req Request) (Plan, error) {
	src := sorted(source, uuid.Nil)
	from := indexOf(src, req.TaskID)
	if from < 0 {
		return Plan{}, ErrTaskNotInColumn
	}
	moved := src[from]

	plan := Plan{Request: req}
	if req.SourceColumnID != moved.ColumnID || req.SourceIndex != from {
		plan.Stale = true
	}
	plan.Request.SourceColumnID = moved.ColumnID
	plan.Request.SourceIndex = from

	if req.DestColumnID == moved.ColumnID {
		to := clamp(req.DestIndex, 0, len(src)-1)
		plan.Request.DestIndex = to
		if to == from {
			plan.noop = true
			plan.Source = src
			return plan, nil
		}
		seq := insertAt(removeAt(src, from), to, moved)
		plan.Source = plan.renumber(seq, moved.ColumnID, moved.ID)
		return plan, nil
	}

	dst := sorted(dest, moved.ID)
	to := clamp(req.DestIndex, 0, len(dst))
	plan.Request.DestIndex = to

	plan.Source = plan.renumber(removeAt(src, from), moved.ColumnID, uuid.Nil)
	plan.Dest = plan.renumber(insertAt(dst, to, moved), req.DestColumnID, moved.ID)
	return plan, nil
}

func (p *Plan) renumber(seq []Item, columnID, movedID uuid.UUID) []Item {
	out := make([]Item, len(seq))
	for i, it := range seq {
		isMoved := it.ID == movedID
		changed := isMoved || it.Order != i || it.ColumnID != columnID
		it.Order = i
		it.ColumnID = columnID
		out[i] = it
		if changed {
			p.changes = append(p.changes, Change{ID: it.ID, ColumnID: columnID, Order: i, Moved: isMoved})
		}
	}
	return out
}

func sorted(items []Item, skip uuid.UUID) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if skip != uuid.Nil && it.ID == skip {
			continue
		}
		out = append(out, it)
	}
	Sort(out)
	return out
}

func indexOf(items []Item, id uuid.UUID) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(items []Item, i int) []Item {
	out := make([]Item, 0, len(items))
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insertAt(items []Item, i int, it Item) []Item {
	out := make([]Item, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, it)
	return append(out, items[i:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
