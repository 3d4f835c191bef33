package cli

import (
	"fmt"
	"os"

	"github.com/argussec/argus/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	noColor      bool
	serverURL    string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "argus",
	Short: "Argus CLI - Adaptive Security Monitoring",
	Long: `Argus CLI provides command-line access to the Argus security core
for checking threat indicators, inspecting rate limits, managing sessions,
reviewing security events and configuring alert rules.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config and credential commands never need a client
		if parent := cmd.Parent(); parent != nil &&
			(parent.Name() == "config" || parent.Name() == "auth") {
			return nil
		}

		// User-scoped resources require a stored JWT
		switch topCommand(cmd) {
		case "sessions", "events", "rules":
			return initAuthenticatedClient()
		default:
			return initClient()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.argus/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))

	// Register all subcommands
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newThreatCmd())
	rootCmd.AddCommand(newRateLimitCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newEventCmd())
	rootCmd.AddCommand(newRuleCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := home + "/.argus"
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ARGUS")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
	})

	if token := viper.GetString("auth.token"); token != "" {
		apiClient.SetToken(token)
	}
	if token := viper.GetString("auth.service_token"); token != "" {
		apiClient.SetServiceToken(token)
	}
	return nil
}

func initAuthenticatedClient() error {
	if err := initClient(); err != nil {
		return err
	}

	if apiClient.GetToken() == "" {
		return fmt.Errorf("not authenticated. Run 'argus auth token' first")
	}
	return nil
}

// topCommand returns the name of the subcommand directly under root
func topCommand(cmd *cobra.Command) string {
	for cmd.Parent() != nil && cmd.Parent().Parent() != nil {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
