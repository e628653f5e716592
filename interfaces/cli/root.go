// Package cli is the boardctl command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"taskboard/pkg/apiclient"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

var (
	version = "dev"

	serverURL string
	token     string
	userFlag  string
	timeout   time.Duration
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "boardctl",
	Short: "Command-line client for the task board API",
	Long: `boardctl reads and changes boards through the task board API.
Changes are applied to the local view first and rolled back when the server rejects them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"})
	},
}

func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// .env เป็น optional
	_ = godotenv.Load()
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TASKBOARD_URL", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("TASKBOARD_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", os.Getenv("TASKBOARD_USER"), "user id sent as X-User-ID when no token is set")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createTaskCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tokenCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// localUser is the identity the client acts as: --user, else the token's
// user_id claim, else uuid.Nil (read-only).
func localUser() (uuid.UUID, error) {
	if userFlag == "" {
		if token == "" {
			return uuid.Nil, nil
		}
		id, err := utils.TokenUserID(token)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid --token: %w", err)
		}
		return id, nil
	}
	id, err := uuid.Parse(userFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user: %w", err)
	}
	return id, nil
}

func newClient() (*apiclient.Client, uuid.UUID, error) {
	user, err := localUser()
	if err != nil {
		return nil, uuid.Nil, err
	}
	c, err := apiclient.New(apiclient.Config{
		BaseURL: serverURL,
		Token:   token,
		UserID:  user,
		Timeout: timeout,
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	return c, user, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func parseUUIDArg(label, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", label, raw)
	}
	return id, nil
}
