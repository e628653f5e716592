package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskboard/domain/dto"
	"taskboard/pkg/apiclient"
	"taskboard/pkg/replica"
)

var createTaskCmd = &cobra.Command{
	Use:   "create-task <board> <title>",
	Short: "Create a task at the bottom of a column",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		columnRef, _ := cmd.Flags().GetString("column")
		description, _ := cmd.Flags().GetString("description")
		priority, _ := cmd.Flags().GetString("priority")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		assignees, _ := cmd.Flags().GetStringSlice("assignee")
		due, _ := cmd.Flags().GetString("due")

		req := dto.CreateTaskRequest{
			Title:       strings.Join(args[1:], " "),
			Description: description,
			Priority:    strings.ToLower(priority),
			Tags:        tags,
		}
		for _, raw := range assignees {
			id, err := parseUUIDArg("assignee", raw)
			if err != nil {
				return err
			}
			req.AssigneeIDs = append(req.AssigneeIDs, id)
		}
		if due != "" {
			d, err := time.Parse(time.DateOnly, due)
			if err != nil {
				return fmt.Errorf("invalid --due %q, want YYYY-MM-DD", due)
			}
			req.DueDate = &d
		}

		return withBoard(cmd, args[0], func(ctx context.Context, m *replica.Mutator) error {
			store := m.Store()
			columns := store.Columns()
			if len(columns) == 0 {
				return errors.New("board has no columns")
			}
			req.ColumnID = columns[0].ID
			if columnRef != "" {
				id, err := resolveColumn(columns, columnRef)
				if err != nil {
					return err
				}
				req.ColumnID = id
			}

			task, err := m.CreateTask(ctx, req)
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q at position %d\n", task.ID, task.Title, task.Order)
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <task-id> <column> [index]",
	Short: "Move a task to a column position",
	Long: `Move a task to position [index] (0-based, default end) of <column>.
<column> is a column id or title. The board is shown after the move.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseUUIDArg("task", args[0])
		if err != nil {
			return err
		}
		index := -1
		if len(args) == 3 {
			if _, err := fmt.Sscanf(args[2], "%d", &index); err != nil || index < 0 {
				return fmt.Errorf("invalid index %q", args[2])
			}
		}

		c, _, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		task, err := c.GetTask(ctx, taskID)
		cancel()
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		return withBoard(cmd, task.BoardID.String(), func(ctx context.Context, m *replica.Mutator) error {
			store := m.Store()
			dest, err := resolveColumn(store.Columns(), args[1])
			if err != nil {
				return err
			}
			if index < 0 {
				index = len(store.ColumnTasks(dest))
			}

			res, err := m.MoveTask(ctx, taskID, dest, index)
			if err != nil {
				return fmt.Errorf("move task: %w", err)
			}
			board, _ := store.Board()
			fmt.Fprintf(cmd.OutOrStdout(), "moved %q to position %d\n", res.Task.Title, res.Task.Order)
			fmt.Fprintln(cmd.OutOrStdout(), renderBoard(board, store.View(replica.Filter{}, replica.SortSpec{}), nil))
			return nil
		})
	},
}

// withBoard loads a replica of the board and runs fn with a mutator over it.
// Rejected changes are reported on stderr.
func withBoard(cmd *cobra.Command, ref string, fn func(context.Context, *replica.Mutator) error) error {
	c, user, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	boardID, err := resolveBoard(ctx, c, ref)
	if err != nil {
		return err
	}
	store := replica.NewStore(user)
	defer store.Close()
	if err := c.LoadReplica(ctx, boardID, store); err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	m := replica.NewMutator(store, c, func(f replica.Failure) {
		fmt.Fprintf(cmd.ErrOrStderr(), "rolled back %s: %s\n", f.Kind, describe(f.Err))
	})
	return fn(ctx, m)
}

// describe turns client errors into one short line.
func describe(err error) string {
	var apiErr *apiclient.Error
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("%s (%d)", apiErr.Message, apiErr.Status)
	case errors.Is(err, apiclient.ErrNetwork):
		return "server unreachable"
	}
	return err.Error()
}

func init() {
	createTaskCmd.Flags().StringP("column", "c", "", "column id or title (default first column)")
	createTaskCmd.Flags().StringP("description", "d", "", "task description")
	createTaskCmd.Flags().StringP("priority", "p", "", "low, medium, high or urgent")
	createTaskCmd.Flags().StringSliceP("tag", "t", nil, "tags")
	createTaskCmd.Flags().StringSlice("assignee", nil, "assignee user ids")
	createTaskCmd.Flags().String("due", "", "due date YYYY-MM-DD")
}
