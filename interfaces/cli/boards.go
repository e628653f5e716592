package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskboard/domain/dto"
	"taskboard/pkg/replica"
)

var boardsCmd = &cobra.Command{
	Use:     "boards",
	Aliases: []string{"ls"},
	Short:   "List boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		mine, _ := cmd.Flags().GetBool("mine")
		c, _, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		boards, err := c.ListBoards(ctx, mine)
		if err != nil {
			return fmt.Errorf("list boards: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderBoardList(boards))
		return nil
	},
}

var createBoardCmd = &cobra.Command{
	Use:   "create-board <title>",
	Short: "Create a board",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		columns, _ := cmd.Flags().GetStringSlice("column")
		description, _ := cmd.Flags().GetString("description")
		c, _, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		board, err := c.CreateBoard(ctx, &dto.CreateBoardRequest{
			Title:       strings.Join(args, " "),
			Description: description,
			Columns:     columns,
		})
		if err != nil {
			return fmt.Errorf("create board: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderBoard(*board, replica.GroupByColumn(board.Columns, nil), nil))
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("id "+board.ID.String()))
		return nil
	},
}

func init() {
	boardsCmd.Flags().Bool("mine", false, "only boards you own or belong to")

	createBoardCmd.Flags().StringSliceP("column", "c", nil, "initial column titles (default To Do, In Progress, Done)")
	createBoardCmd.Flags().StringP("description", "d", "", "board description")
	rootCmd.AddCommand(createBoardCmd)
}
