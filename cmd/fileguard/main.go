// Command fileguard is the ambient CLI for the context-propagation
// runtime: it starts the demo HTTP server and offers a one-shot path
// matcher check, behind a persistent-flag-plus-subcommand root command.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oriys/ctxguard/internal/logging"
)

var (
	configFile string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fileguard",
		Short: "fileguard - segmented execution-context runtime with file-access control",
		Long:  "Runs and inspects the promise-lineage / controller-stack / file-access-security runtime.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logging.SetLevel(slog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a JSON config file (optional, env vars and defaults apply otherwise)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "set debug-level logging for this invocation; serve's config/env log level applies on top of this once NewRuntime runs")

	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fileguard version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("fileguard dev")
			return nil
		},
	}
}
