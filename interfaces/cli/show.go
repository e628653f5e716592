package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskboard/domain/dto"
	"taskboard/pkg/apiclient"
	"taskboard/pkg/replica"
)

var showCmd = &cobra.Command{
	Use:   "show <board>",
	Short: "Show a board grouped by column",
	Long: `Show a board with its tasks grouped by column.
<board> is a board id or slug. Filters are combined: a task must match all of them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, sortSpec, err := viewOptions(cmd)
		if err != nil {
			return err
		}
		c, user, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		boardID, err := resolveBoard(ctx, c, args[0])
		if err != nil {
			return err
		}
		store := replica.NewStore(user)
		if err := c.LoadReplica(ctx, boardID, store); err != nil {
			return fmt.Errorf("load board: %w", err)
		}

		board, _ := store.Board()
		var viewers []uuid.UUID
		if p, err := c.Presence(ctx, boardID); err == nil {
			viewers = p.UserIDs
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderBoard(board, store.View(filter, sortSpec), viewers))
		// columns เรียงตาม position เสมอ; --sort แสดงเป็นรายการแยก
		if sortSpec.Key != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTaskList(store.Columns(), replica.Project(store.Tasks(), filter, sortSpec)))
		}
		return nil
	},
}

func init() {
	addViewFlags(showCmd)
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("search", "s", "", "match title, description or tags")
	cmd.Flags().StringSlice("assignee", nil, "assignee user ids")
	cmd.Flags().StringSliceP("tag", "t", nil, "tags")
	cmd.Flags().StringSliceP("priority", "p", nil, "priorities: low, medium, high, urgent")
	cmd.Flags().String("sort", "", "list tasks sorted by createdAt, updatedAt, priority, dueDate or title")
	cmd.Flags().Bool("desc", false, "sort descending")
}

func viewOptions(cmd *cobra.Command) (replica.Filter, replica.SortSpec, error) {
	search, _ := cmd.Flags().GetString("search")
	assignees, _ := cmd.Flags().GetStringSlice("assignee")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	priorities, _ := cmd.Flags().GetStringSlice("priority")
	sortKey, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	return buildView(search, assignees, tags, priorities, sortKey, desc)
}

func buildView(search string, assignees, tags, priorities []string, sortKey string, desc bool) (replica.Filter, replica.SortSpec, error) {
	f := replica.Filter{Search: search, Tags: tags}
	for _, raw := range assignees {
		id, err := parseUUIDArg("assignee", raw)
		if err != nil {
			return replica.Filter{}, replica.SortSpec{}, err
		}
		f.AssigneeIDs = append(f.AssigneeIDs, id)
	}
	for _, p := range priorities {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := priorityColors[p]; !ok {
			return replica.Filter{}, replica.SortSpec{}, fmt.Errorf("unknown priority %q", p)
		}
		f.Priorities = append(f.Priorities, p)
	}
	key, ok := replica.ParseSortKey(sortKey)
	if !ok {
		return replica.Filter{}, replica.SortSpec{}, fmt.Errorf("unknown sort key %q", sortKey)
	}
	return f, replica.SortSpec{Key: key, Desc: desc}, nil
}

// resolveBoard accepts a board id, or a slug/title looked up in the board list.
func resolveBoard(ctx context.Context, c *apiclient.Client, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	boards, err := c.ListBoards(ctx, false)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list boards: %w", err)
	}
	return matchBoard(boards, ref)
}

func matchBoard(boards []dto.BoardResponse, ref string) (uuid.UUID, error) {
	var found []dto.BoardResponse
	for _, b := range boards {
		if b.Slug == ref || strings.EqualFold(b.Title, ref) {
			found = append(found, b)
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("board %q not found", ref)
	case 1:
		return found[0].ID, nil
	}
	return uuid.Nil, fmt.Errorf("board %q is ambiguous (%d matches), use the id", ref, len(found))
}

// resolveColumn accepts a column id or a case-insensitive title.
func resolveColumn(columns []dto.ColumnResponse, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		for _, c := range columns {
			if c.ID == id {
				return id, nil
			}
		}
		return uuid.Nil, fmt.Errorf("column %s is not on this board", id)
	}
	for _, c := range columns {
		if strings.EqualFold(c.Title, ref) {
			return c.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("column %q not found", ref)
}
