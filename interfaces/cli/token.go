package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskboard/pkg/utils"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Sign an access token for a user",
	Long: `Sign an HS256 token with the server's JWT secret (--secret or JWT_SECRET).
Pass the result to --token or TASKBOARD_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUUIDArg("user", args[0])
		if err != nil {
			return err
		}
		secret, _ := cmd.Flags().GetString("secret")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		if secret == "" {
			return errors.New("--secret or JWT_SECRET is required")
		}
		if ttl <= 0 {
			return fmt.Errorf("invalid --ttl %s", ttl)
		}

		signed, err := utils.GenerateToken(userID, name, email, secret, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	tokenCmd.Flags().String("name", "", "name claim")
	tokenCmd.Flags().String("email", "", "email claim")
}
