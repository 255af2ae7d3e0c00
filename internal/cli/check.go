package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("repair", false, "Rebuild the caches of every account that does not match")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify cached balances against the transaction lines",
	Long: `Recompute every active account's balance from its transaction lines and
compare it with the cached running balance and the account snapshot. Journals
whose debits and credits differ are reported too.

Exits non-zero when anything does not match. With --repair, mismatched
accounts are rebuilt and only the ones that could not be repaired count.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

type checkReport struct {
	Accounts           []domain.BalanceCheck    `json:"accounts,omitempty"`
	FailedAccounts     []string                 `json:"failedAccounts,omitempty"`
	Summary            *domain.IntegritySummary `json:"summary,omitempty"`
	UnbalancedJournals []string                 `json:"unbalancedJournals"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	repair, _ := cmd.Flags().GetBool("repair")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var report checkReport
	mismatched := 0
	if repair {
		summary := a.services.Integrity.RunStartupCheck(ctx)
		report.Summary = &summary
		mismatched = len(summary.StaleAccounts) + len(summary.FailedAccounts)
	} else {
		checks, failed, err := a.services.Integrity.VerifyAllAccountBalances(ctx)
		if err != nil {
			return fmt.Errorf("verifying accounts: %w", err)
		}
		report.Accounts = checks
		report.FailedAccounts = failed
		mismatched = len(failed)
		for _, c := range checks {
			if !c.Matches {
				mismatched++
			}
		}
	}

	report.UnbalancedJournals, err = a.services.Integrity.VerifyJournalBalances(ctx)
	if err != nil {
		return fmt.Errorf("verifying journals: %w", err)
	}
	if report.UnbalancedJournals == nil {
		report.UnbalancedJournals = []string{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if mismatched > 0 || len(report.UnbalancedJournals) > 0 {
		return fmt.Errorf("%d account(s) and %d journal(s) failed verification", mismatched, len(report.UnbalancedJournals))
	}
	return nil
}
