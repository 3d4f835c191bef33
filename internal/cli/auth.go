package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
	}

	cmd.AddCommand(newAuthTokenCmd())
	cmd.AddCommand(newAuthServiceTokenCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Store a JWT for user commands",
		Long: `Stores the JWT used by the sessions, events and rules commands.
Tokens are issued by the identity service that fronts Argus; paste one here
or pass it with --token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = promptSecret("Token: ")
			}
			if token == "" {
				return fmt.Errorf("no token provided")
			}

			viper.Set("auth.token", token)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Println("Token saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "JWT token (prompted if omitted)")

	return cmd
}

func newAuthServiceTokenCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "service-token",
		Short: "Store the shared service token for engine commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = promptSecret("Service token: ")
			}
			if token == "" {
				return fmt.Errorf("no token provided")
			}

			viper.Set("auth.service_token", token)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Println("Service token saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "service token (prompted if omitted)")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("auth.token", "")
			viper.Set("auth.service_token", "")

			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			fmt.Println("Credentials cleared")
			return nil
		},
	}
}

func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptSecret(prompt string) string {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(secret)
}
