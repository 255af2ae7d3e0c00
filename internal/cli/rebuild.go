package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [ACCOUNT_ID...]",
	Short: "Rebuild running balances and snapshots",
	Long: `Recompute the running balance of every transaction line of the given
accounts, oldest first, and write the account snapshot. With no arguments
every active account is rebuilt. Values that already match are not rewritten.`,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	accountIDs := args
	if len(accountIDs) == 0 {
		accounts, err := a.services.Account.ListAccounts(ctx, false)
		if err != nil {
			return fmt.Errorf("listing accounts: %w", err)
		}
		for _, acc := range accounts {
			accountIDs = append(accountIDs, acc.AccountID)
		}
	}

	failed := 0
	for _, id := range accountIDs {
		res, err := a.services.Rebuild.RebuildNow(ctx, id)
		if err != nil {
			failed++
			a.logger.Error("Rebuild failed", slog.String("account_id", id), slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintf(os.Stdout, "%-40s examined=%-6d written=%-6d balance=%s\n",
			res.AccountID, res.Examined, res.Written, res.FinalBalance.String())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d account(s) could not be rebuilt", failed, len(accountIDs))
	}
	return nil
}
