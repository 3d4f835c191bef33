package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and open event summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			format := getOutputFormat()
			if format != "table" {
				summary := map[string]interface{}{}

				health, err := apiClient.Health(ctx)
				if err == nil {
					summary["server"] = health["status"]
					summary["database"] = health["database"]
				} else {
					summary["server"] = fmt.Sprintf("unreachable: %v", err)
				}
				if apiClient.GetToken() != "" {
					if counts, err := apiClient.Events().Summary(ctx); err == nil {
						summary["openEvents"] = counts
					}
				}
				return printOutput(summary)
			}

			fmt.Println("Argus Status")
			fmt.Println(strings.Repeat("=", 40))

			health, err := apiClient.Health(ctx)
			if err != nil {
				fmt.Printf("  Server:       (error: %v)\n", err)
				return nil
			}
			fmt.Printf("  Server:       %s\n", health["status"])
			if db := health["database"]; db != "" {
				fmt.Printf("  Database:     %s\n", db)
			}

			if apiClient.GetToken() == "" {
				fmt.Println("  Open events:  (run 'argus auth token' to see event summary)")
				return nil
			}

			counts, err := apiClient.Events().Summary(ctx)
			if err != nil {
				fmt.Printf("  Open events:  (error: %v)\n", err)
				return nil
			}

			total := 0
			for _, c := range counts {
				total += c
			}
			fmt.Printf("  Open events:  %d", total)
			if counts["critical"] > 0 {
				fmt.Printf(" (%d critical)", counts["critical"])
			}
			fmt.Println()
			for _, sev := range []string{"critical", "high", "medium", "low"} {
				if counts[sev] > 0 {
					fmt.Printf("    %-10s %d\n", sev+":", counts[sev])
				}
			}
			return nil
		},
	}
}
