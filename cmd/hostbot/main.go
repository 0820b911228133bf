package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// QueryFlags holds flags for commands that query a running daemon.
type QueryFlags struct {
	Name       string
	APIUrl     string
	APITimeout time.Duration
	MaxBytes   int64
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	queryFlags := &QueryFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createStatusCommand(queryFlags),
		createLogsCommand(queryFlags),
		createAllowCommand(globalFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "hostbot",
		Short: "Chat-driven script hosting daemon",
		Long: `Hostbot hosts uploaded scripts: it stores them with their env overrides
and dependency manifests, runs them under a supervisor, and exposes both a
chat command surface and an HTTP probe/status API.

Examples:
  hostbot serve --config=config.toml
  hostbot status --name=scraper
  hostbot logs --name=scraper --max=4096
  hostbot allow add --user=123456789 --config=config.toml`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

// createStatusCommand creates the status subcommand. It queries a running
// daemon over HTTP rather than inspecting local state.
func createStatusCommand(flags *QueryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show script status from a running daemon",
		Long: `Show the status of hosted scripts via the daemon HTTP API.

Examples:
  hostbot status                    # all scripts
  hostbot status --name=scraper     # one script
  hostbot status --api-url=http://remote:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(flags.APIUrl, flags.APITimeout)
			out, err := client.Status(flags.Name)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "script name (optional)")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://localhost:8080)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

// createLogsCommand creates the logs subcommand.
func createLogsCommand(flags *QueryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Fetch the trailing run log of a script",
		Long: `Fetch the trailing bytes of a script's current run log from a running daemon.

Examples:
  hostbot logs --name=scraper
  hostbot logs --name=scraper --max=4096`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(flags.APIUrl, flags.APITimeout)
			out, err := client.Logs(flags.Name, flags.MaxBytes)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "script name (required)")
	cmd.Flags().Int64Var(&flags.MaxBytes, "max", 0, "maximum trailing bytes (0 uses the daemon default)")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://localhost:8080)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}
