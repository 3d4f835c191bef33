package cli

import (
	"context"
	"fmt"

	"github.com/argussec/argus/pkg/client"
	"github.com/spf13/cobra"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Review security events",
	}

	cmd.AddCommand(newEventListCmd())
	cmd.AddCommand(newEventRecentCmd())
	cmd.AddCommand(newEventResolveCmd())
	cmd.AddCommand(newEventSummaryCmd())

	return cmd
}

func renderEventTable(events []client.Event) {
	table := NewTable("ID", "TIME", "SEVERITY", "TYPE", "TITLE", "RESOLVED")
	for _, ev := range events {
		table.AddRow(
			truncate(ev.ID, 12),
			ev.CreatedAt.Format("2006-01-02 15:04"),
			formatSeverity(ev.Severity),
			ev.EventType,
			truncate(ev.Title, 40),
			formatBool(ev.IsResolved),
		)
	}
	table.Render()
}

func newEventListCmd() *cobra.Command {
	var opts client.EventListOptions
	var resolvedFlag, unresolvedFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted security events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resolvedFlag {
				v := true
				opts.Resolved = &v
			} else if unresolvedFlag {
				v := false
				opts.Resolved = &v
			}

			events, total, err := apiClient.Events().List(context.Background(), &opts)
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(events)
			}

			renderEventTable(events)
			fmt.Printf("\n%d of %d events\n", len(events), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.EventType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "filter by severity")
	cmd.Flags().BoolVar(&resolvedFlag, "resolved", false, "only resolved events")
	cmd.Flags().BoolVar(&unresolvedFlag, "unresolved", false, "only unresolved events")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}

func newEventRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent events from the in-memory buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := apiClient.Events().Recent(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("failed to fetch recent events: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(events)
			}

			renderEventTable(events)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")

	return cmd
}

func newEventResolveCmd() *cobra.Command {
	var resolvedBy string

	cmd := &cobra.Command{
		Use:   "resolve <event-id>",
		Short: "Mark an event as handled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if resolvedBy == "" {
				resolvedBy = promptInput("Resolved by: ")
			}
			if resolvedBy == "" {
				return fmt.Errorf("resolver name is required")
			}

			if err := apiClient.Events().Resolve(context.Background(), args[0], resolvedBy); err != nil {
				return fmt.Errorf("failed to resolve event: %w", err)
			}
			fmt.Println("Event resolved")
			return nil
		},
	}

	cmd.Flags().StringVar(&resolvedBy, "by", "", "who resolved the event")

	return cmd
}

func newEventSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show unresolved event counts by severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := apiClient.Events().Summary(context.Background())
			if err != nil {
				return fmt.Errorf("failed to fetch summary: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(counts)
			}

			table := NewTable("SEVERITY", "OPEN")
			for _, sev := range []string{"critical", "high", "medium", "low"} {
				table.AddRow(formatSeverity(sev), fmt.Sprintf("%d", counts[sev]))
			}
			table.Render()
			return nil
		},
	}
}
