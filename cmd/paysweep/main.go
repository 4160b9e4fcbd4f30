package main

import (
	"os"

	"github.com/spf13/cobra"

	"paysweep/internal/interfaces/cli/server"
	"paysweep/internal/interfaces/cli/sweep"
	"paysweep/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paysweep",
		Short: "Paysweep - payment order reconciliation",
		Long:  `Paysweep reconciles local payment orders against the gateway: it verifies captured payments, refunds stuck ones to the user's wallet and expires abandoned orders.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		worker.NewCommand(),
		sweep.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
