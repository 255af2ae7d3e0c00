// Package cli holds the mma_ledger commands: serve, check and rebuild.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mma_ledger",
	Short: "Double-entry ledger with self-healing balance caches",
	Long: `mma_ledger records balanced journals, keeps per-line running balances and
account balance snapshots consistent in the background, and verifies them
against a recomputation from the transaction lines.

Configuration is read from the environment and an optional .env file
(STORE_DRIVER, PGSQL_URL, SQLITE_PATH, LOG_LEVEL, ...).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
