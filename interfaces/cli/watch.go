package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskboard/domain/events"
	"taskboard/pkg/apiclient"
	"taskboard/pkg/replica"
)

var watchCmd = &cobra.Command{
	Use:   "watch <board>",
	Short: "Follow a board live",
	Long:  "Load a board, join its realtime channel and redraw it on every change until interrupted.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, sortSpec, err := viewOptions(cmd)
		if err != nil {
			return err
		}
		c, user, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := replica.NewStore(user)
		loadCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		boardID, err := resolveBoard(loadCtx, c, args[0])
		if err != nil {
			return err
		}
		if err := c.LoadReplica(loadCtx, boardID, store); err != nil {
			return fmt.Errorf("load board: %w", err)
		}
		return watch(ctx, cmd, c, store, filter, sortSpec)
	},
}

func watch(ctx context.Context, cmd *cobra.Command, c *apiclient.Client, store *replica.Store, filter replica.Filter, sortSpec replica.SortSpec) error {
	defer store.Close()
	out := cmd.OutOrStdout()

	draw := func(reason string) {
		board, ok := store.Board()
		if !ok {
			fmt.Fprintln(out, mutedStyle.Render("board was deleted"))
			return
		}
		// ล้างจอก่อนวาดใหม่
		fmt.Fprint(out, "\033[H\033[2J")
		fmt.Fprintln(out, renderBoard(board, store.View(filter, sortSpec), store.Viewers()))
		fmt.Fprintln(out, mutedStyle.Render(time.Now().Format(time.TimeOnly)+"  "+reason))
	}
	draw("loaded")

	sock, err := c.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sock.Close()
	if err := sock.Join(store.BoardID()); err != nil {
		return err
	}

	return sock.Stream(ctx, func(evt *events.Event) {
		if !store.Apply(evt) {
			return
		}
		draw(string(evt.Type))
		if evt.Type == events.BoardDeleted {
			_ = sock.Close()
		}
	})
}

func init() {
	addViewFlags(watchCmd)
}
