package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage alert rules (admin)",
	}

	cmd.AddCommand(newRuleListCmd())
	cmd.AddCommand(newRuleGetCmd())
	cmd.AddCommand(newRuleDeleteCmd())

	return cmd
}

func newRuleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := apiClient.Rules().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(rules)
			}

			table := NewTable("ID", "NAME", "EVENT TYPE", "THRESHOLD", "WINDOW", "ACTIVE", "LAST FIRED")
			for _, rule := range rules {
				lastFired := "never"
				if rule.LastFiredAt != nil {
					lastFired = rule.LastFiredAt.Format("2006-01-02 15:04")
				}
				table.AddRow(
					truncate(rule.ID, 12),
					rule.Name,
					rule.EventType,
					strconv.Itoa(rule.Threshold),
					fmt.Sprintf("%dm", rule.TimeWindowMinutes),
					formatBool(rule.IsActive),
					lastFired,
				)
			}
			table.Render()
			return nil
		},
	}
}

func newRuleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <rule-id>",
		Short: "Show one alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := apiClient.Rules().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(rule)
			}

			fmt.Printf("ID:         %s\n", rule.ID)
			fmt.Printf("Name:       %s\n", rule.Name)
			fmt.Printf("Event type: %s\n", rule.EventType)
			fmt.Printf("Threshold:  %d in %dm\n", rule.Threshold, rule.TimeWindowMinutes)
			fmt.Printf("Active:     %s\n", formatBool(rule.IsActive))
			fmt.Printf("Actions:    %v\n", rule.Actions)
			if len(rule.Conditions) > 0 {
				fmt.Printf("Conditions: %v\n", rule.Conditions)
			}
			if rule.LastFiredAt != nil {
				fmt.Printf("Last fired: %s\n", rule.LastFiredAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newRuleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Rules().Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			fmt.Println("Rule deleted")
			return nil
		},
	}
}
