package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Rate limit inspection commands",
	}

	cmd.AddCommand(newRateLimitPeekCmd())

	return cmd
}

func newRateLimitPeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek <endpoint> <actor-key>",
		Short: "Show an actor's current rate limit window without consuming it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := apiClient.RateLimit().Peek(context.Background(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("peek failed: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(decision)
			}

			fmt.Printf("Endpoint:   %s\n", args[0])
			fmt.Printf("Actor:      %s\n", args[1])
			fmt.Printf("Allowed:    %s\n", formatBool(decision.Allowed))
			fmt.Printf("Limit:      %d\n", decision.Limit)
			fmt.Printf("Remaining:  %d\n", decision.Remaining)
			fmt.Printf("Resets at:  %s\n", decision.ResetAt.Format(time.RFC3339))
			if decision.RetryAfter > 0 {
				fmt.Printf("Retry in:   %ds\n", decision.RetryAfter)
			}
			return nil
		},
	}
}
