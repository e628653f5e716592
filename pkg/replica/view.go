package replica

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/models"
)

// Filter criteria are AND-combined; an empty criterion matches everything.
type Filter struct {
	Search      string
	AssigneeIDs []uuid.UUID
	Tags        []string
	Priorities  []string
}

type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortUpdatedAt SortKey = "updatedAt"
	SortPriority  SortKey = "priority"
	SortDueDate   SortKey = "dueDate"
	SortTitle     SortKey = "title"
)

// SortSpec with an empty Key keeps the canonical order.
type SortSpec struct {
	Key  SortKey
	Desc bool
}

type ColumnGroup struct {
	Column dto.ColumnResponse
	Tasks  []dto.TaskResponse
}

// ParseSortKey accepts the wire names of the sort keys.
func ParseSortKey(v string) (SortKey, bool) {
	switch k := SortKey(v); k {
	case SortCreatedAt, SortUpdatedAt, SortPriority, SortDueDate, SortTitle:
		return k, true
	case "":
		return "", true
	}
	return "", false
}

// Match reports whether t passes every criterion of f.
func (f Filter) Match(t dto.TaskResponse) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		found := strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
		for _, tag := range t.Tags {
			if found {
				break
			}
			found = strings.Contains(strings.ToLower(tag), q)
		}
		if !found {
			return false
		}
	}

	if len(f.AssigneeIDs) > 0 {
		found := false
		for _, a := range t.Assignees {
			for _, id := range f.AssigneeIDs {
				if a.ID == id {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Tags) > 0 {
		found := false
		for _, tag := range t.Tags {
			for _, want := range f.Tags {
				if tag == want {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Priorities) > 0 {
		found := false
		for _, p := range f.Priorities {
			if t.Priority == p {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Project filters tasks and sorts them by sortBy. Ties fall back to the
// canonical order. The input slice is not modified.
func Project(tasks []dto.TaskResponse, f Filter, sortBy SortSpec) []dto.TaskResponse {
	out := make([]dto.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sortCanonical(out)
	if sortBy.Key == "" {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		// ไม่มี due date อยู่ท้ายเสมอ ไม่ว่าจะเรียงแบบไหน
		if sortBy.Key == SortDueDate && (a.DueDate == nil) != (b.DueDate == nil) {
			return b.DueDate == nil
		}
		c := compare(a, b, sortBy.Key)
		if sortBy.Desc {
			c = -c
		}
		return c < 0
	})
	return out
}

func compare(a, b dto.TaskResponse, key SortKey) int {
	switch key {
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortPriority:
		return models.PriorityRank(a.Priority) - models.PriorityRank(b.Priority)
	case SortDueDate:
		if a.DueDate == nil || b.DueDate == nil {
			return 0
		}
		return a.DueDate.Compare(*b.DueDate)
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}
	return 0
}

// GroupByColumn buckets tasks under columns in column order. Each column is
// re-sorted by task order whatever the projection sort was, so an index into
// a group is a drop position. Tasks of unknown columns are dropped.
func GroupByColumn(columns []dto.ColumnResponse, tasks []dto.TaskResponse) []ColumnGroup {
	cols := append([]dto.ColumnResponse(nil), columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Order < cols[j].Order })

	groups := make([]ColumnGroup, len(cols))
	index := make(map[uuid.UUID]int, len(cols))
	for i, c := range cols {
		groups[i] = ColumnGroup{Column: c, Tasks: []dto.TaskResponse{}}
		index[c.ID] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.ColumnID]; ok {
			groups[i].Tasks = append(groups[i].Tasks, t)
		}
	}
	for i := range groups {
		sortCanonical(groups[i].Tasks)
	}
	return groups
}

// View is Project plus GroupByColumn over the current replica.
func (s *Store) View(f Filter, sortBy SortSpec) []ColumnGroup {
	return GroupByColumn(s.Columns(), Project(s.Tasks(), f, sortBy))
}
