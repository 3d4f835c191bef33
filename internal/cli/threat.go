package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/argussec/argus/pkg/client"
	"github.com/spf13/cobra"
)

func newThreatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threat",
		Short: "Threat intelligence commands",
	}

	cmd.AddCommand(newThreatCheckCmd())
	cmd.AddCommand(newThreatAddCmd())
	cmd.AddCommand(newThreatListCmd())

	return cmd
}

func newThreatCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <type> <value>",
		Short: "Check a value against threat intelligence",
		Long: `Checks an indicator value (ip, domain, hash, email or url) against the
threat store and any configured external feeds. Requires a service token.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			result, err := apiClient.Threat().Check(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(result)
			}

			fmt.Printf("Value:          %s (%s)\n", args[1], args[0])
			fmt.Printf("Threat:         %s\n", formatBool(result.IsThreat))
			fmt.Printf("Risk score:     %.1f\n", result.RiskScore)
			fmt.Printf("Recommendation: %s\n", result.Recommendation)
			if len(result.Sources) > 0 {
				fmt.Printf("Sources:        %v\n", result.Sources)
			}

			if len(result.Indicators) > 0 {
				fmt.Println()
				table := NewTable("SEVERITY", "THREAT TYPE", "SOURCE", "CONFIDENCE", "LAST SEEN")
				for _, ind := range result.Indicators {
					table.AddRow(
						formatSeverity(ind.Severity),
						ind.ThreatType,
						ind.Source,
						strconv.Itoa(ind.Confidence),
						ind.LastSeen.Format(time.RFC3339),
					)
				}
				table.Render()
			}
			return nil
		},
	}
}

func newThreatAddCmd() *cobra.Command {
	var req client.AddIndicatorRequest

	cmd := &cobra.Command{
		Use:   "add <type> <value>",
		Short: "Add a threat indicator (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Type = args[0]
			req.Value = args[1]

			id, err := apiClient.Threat().Add(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to add indicator: %w", err)
			}

			fmt.Printf("Indicator added: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ThreatType, "threat-type", "", "threat classification (malware, phishing, ...)")
	cmd.Flags().StringVar(&req.Severity, "severity", "medium", "severity: critical, high, medium, low")
	cmd.Flags().StringVar(&req.Source, "source", "manual", "indicator source")
	cmd.Flags().IntVar(&req.Confidence, "confidence", 75, "confidence 0-100")

	return cmd
}

func newThreatListCmd() *cobra.Command {
	var opts client.IndicatorListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored threat indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			indicators, total, err := apiClient.Threat().List(context.Background(), &opts)
			if err != nil {
				return fmt.Errorf("failed to list indicators: %w", err)
			}

			format := getOutputFormat()
			if format != "table" {
				return printOutput(indicators)
			}

			table := NewTable("TYPE", "VALUE", "SEVERITY", "SOURCE", "CONFIDENCE", "ACTIVE")
			for _, ind := range indicators {
				table.AddRow(
					ind.Type,
					truncate(ind.Value, 40),
					formatSeverity(ind.Severity),
					ind.Source,
					strconv.Itoa(ind.Confidence),
					formatBool(ind.IsActive),
				)
			}
			table.Render()
			fmt.Printf("\n%d of %d indicators\n", len(indicators), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by indicator type")
	cmd.Flags().StringVar(&opts.Source, "source", "", "filter by source")
	cmd.Flags().BoolVar(&opts.ActiveOnly, "active", false, "only active indicators")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}
