package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dispatchd",
		Short: "Service-request dispatch engine",
		Long: `dispatchd accepts home-service requests, classifies them with a language model,
routes urgent ones and ranks field agents for assignment.

Configuration is read from the environment (and a .env file when present).`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd(), newTokenCmd(), newAgentsCmd())
	return rootCmd
}
