package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage your active sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionTerminateCmd())
	cmd.AddCommand(newSessionTerminateOthersCmd())

	return cmd
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := apiClient.Sessions().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(sessions)
			}

			table := NewTable("ID", "IP", "DEVICE", "LAST ACTIVITY", "RISK")
			for _, s := range sessions {
				table.AddRow(
					truncate(s.ID, 12),
					s.IPAddress,
					truncate(s.DeviceInfo, 30),
					s.LastActivity.Format("2006-01-02 15:04"),
					fmt.Sprintf("%.0f", s.RiskScore),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newSessionTerminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate <session-id>",
		Short: "End one of your sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Sessions().Terminate(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to terminate session: %w", err)
			}
			fmt.Println("Session terminated")
			return nil
		},
	}
}

func newSessionTerminateOthersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate-others <keep-session-id>",
		Short: "End every session except the given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ended, err := apiClient.Sessions().TerminateOthers(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to terminate sessions: %w", err)
			}
			fmt.Printf("Terminated %d session(s)\n", ended)
			return nil
		},
	}
}
