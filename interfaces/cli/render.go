package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/pkg/replica"
)

const (
	ColorAccent = "#7D56F4"
	ColorBorder = "#444444"
	ColorMuted  = "#888888"
	ColorLow    = "#5FAF87"
	ColorMedium = "#87AFD7"
	ColorHigh   = "#FFAF00"
	ColorUrgent = "#FF5F5F"

	columnWidth = 28
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1).
			Width(columnWidth)

	columnHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var priorityColors = map[string]string{
	"low":    ColorLow,
	"medium": ColorMedium,
	"high":   ColorHigh,
	"urgent": ColorUrgent,
}

// renderBoard draws one column box per group, side by side.
func renderBoard(board dto.BoardResponse, groups []replica.ColumnGroup, viewers []uuid.UUID) string {
	header := titleStyle.Render(board.Title)
	if board.Slug != "" {
		header += " " + mutedStyle.Render("("+board.Slug+")")
	}
	if len(viewers) > 0 {
		header += "  " + mutedStyle.Render(fmt.Sprintf("%d viewing", len(viewers)))
	}

	boxes := make([]string, 0, len(groups))
	for _, g := range groups {
		boxes = append(boxes, renderColumn(g))
	}
	if len(boxes) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, mutedStyle.Render("no columns"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
}

func renderColumn(g replica.ColumnGroup) string {
	head := columnHeaderStyle.Render(truncate(g.Column.Title, columnWidth-6))
	if g.Column.Color != "" {
		head = lipgloss.NewStyle().Foreground(lipgloss.Color(g.Column.Color)).Render(head)
	}
	lines := []string{head + " " + mutedStyle.Render(fmt.Sprintf("%d", len(g.Tasks)))}
	for _, t := range g.Tasks {
		lines = append(lines, renderTask(t))
	}
	if len(g.Tasks) == 0 {
		lines = append(lines, mutedStyle.Render("empty"))
	}
	return columnStyle.Render(strings.Join(lines, "\n"))
}

func renderTask(t dto.TaskResponse) string {
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(priorityColors[t.Priority])).Render("●")
	line := dot + " " + truncate(t.Title, columnWidth-4)

	var meta []string
	if t.DueDate != nil {
		meta = append(meta, "due "+t.DueDate.Format("Jan 2"))
	}
	if len(t.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(t.Tags, " #"))
	}
	if len(t.Assignees) > 0 {
		names := make([]string, len(t.Assignees))
		for i, a := range t.Assignees {
			names[i] = a.Name
		}
		meta = append(meta, "@"+strings.Join(names, " @"))
	}
	if len(meta) > 0 {
		line += "\n  " + mutedStyle.Render(truncate(strings.Join(meta, " "), columnWidth-4))
	}
	return line
}

// renderTaskList prints tasks one per line in the given order, with their column.
func renderTaskList(columns []dto.ColumnResponse, tasks []dto.TaskResponse) string {
	if len(tasks) == 0 {
		return mutedStyle.Render("No matching tasks.")
	}
	names := make(map[uuid.UUID]string, len(columns))
	for _, c := range columns {
		names[c.ID] = c.Title
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-32s  %-16s  %-8s  %s\n", "TITLE", "COLUMN", "PRIORITY", "DUE")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
		}
		fmt.Fprintf(&b, "%-32s  %-16s  %-8s  %s\n", truncate(t.Title, 32), truncate(names[t.ColumnID], 16), t.Priority, due)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBoardList(boards []dto.BoardResponse) string {
	if len(boards) == 0 {
		return mutedStyle.Render("No boards found. Use 'boardctl create-board' or the API to create one.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-24s  %-7s  %s\n", "ID", "TITLE", "COLUMNS", "UPDATED")
	b.WriteString(strings.Repeat("-", 84) + "\n")
	for _, board := range boards {
		fmt.Fprintf(&b, "%-36s  %-24s  %-7d  %s\n",
			board.ID,
			truncate(board.Title, 24),
			len(board.Columns),
			board.UpdatedAt.Local().Format(time.DateTime),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts s to max runes with a trailing ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
