package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/platform/metrics"
	"github.com/SscSPs/mma_ledger/internal/utils/accounting"
	"github.com/SscSPs/mma_ledger/internal/utils/moneymath"
	"github.com/shopspring/decimal"
)

const defaultAccountCheckTimeout = 10 * time.Second

// integrityService recomputes balances from scratch and repairs drifted caches
// through the rebuild queue.
type integrityService struct {
	BaseService
	store          portsrepo.LedgerStore
	currency       portssvc.CurrencySvc
	balances       *balanceService
	queue          portssvc.RebuildQueueSvc
	accountTimeout time.Duration
}

// NewIntegrityService creates the IntegritySvc. accountTimeout bounds every
// single-account verification or repair; zero selects a default.
func NewIntegrityService(store portsrepo.LedgerStore, currency portssvc.CurrencySvc, queue portssvc.RebuildQueueSvc, accountTimeout time.Duration) portssvc.IntegritySvc {
	if accountTimeout <= 0 {
		accountTimeout = defaultAccountCheckTimeout
	}
	return &integrityService{
		store:          store,
		currency:       currency,
		balances:       newBalanceService(store, currency),
		queue:          queue,
		accountTimeout: accountTimeout,
	}
}

var _ portssvc.IntegritySvc = (*integrityService)(nil)

func (s *integrityService) ComputeBalanceFromTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ledger, err := s.balances.load(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.computed(), nil
}

// VerifyAccountBalance reports Discrepancy as computed minus whichever cache is
// further off. Matches requires both caches within epsilon.
func (s *integrityService) VerifyAccountBalance(ctx context.Context, accountID string) (*domain.BalanceCheck, error) {
	ledger, err := s.balances.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	computed := ledger.computed()
	cached := ledger.cached()
	snapshot := ledger.account.Balance

	discrepancy := computed.Sub(cached)
	if d := computed.Sub(snapshot); d.Abs().GreaterThan(discrepancy.Abs()) {
		discrepancy = d
	}

	return &domain.BalanceCheck{
		AccountID:       accountID,
		CachedBalance:   cached,
		SnapshotBalance: snapshot,
		ComputedBalance: computed,
		Discrepancy:     moneymath.RoundToPrecision(discrepancy, ledger.precision),
		Matches: moneymath.AmountsAreEqual(cached, computed, ledger.precision) &&
			moneymath.AmountsAreEqual(snapshot, computed, ledger.precision),
	}, nil
}

// withTimeout runs fn under a per-account deadline. A store that ignores its
// context cannot hold the caller past the deadline, and a panic in fn comes back
// as an error.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("account check panicked: %v", p)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("account check interrupted: %w", ctx.Err())
	}
}

func (s *integrityService) VerifyAllAccountBalances(ctx context.Context) ([]domain.BalanceCheck, []string, error) {
	accounts, err := s.store.ListAccounts(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	checks := make([]domain.BalanceCheck, 0, len(accounts))
	var failed []string
	for i, acc := range accounts {
		if ctx.Err() != nil {
			for _, rest := range accounts[i:] {
				failed = append(failed, rest.AccountID)
			}
			metrics.IntegrityCheckFailures.Add(float64(len(accounts) - i))
			s.LogError(ctx, ctx.Err(), "Integrity scan stopped early", slog.Int("remaining", len(accounts)-i))
			break
		}

		check, err := withTimeout(ctx, s.accountTimeout, func(ctx context.Context) (*domain.BalanceCheck, error) {
			return s.VerifyAccountBalance(ctx, acc.AccountID)
		})
		if err != nil {
			metrics.IntegrityCheckFailures.Inc()
			s.LogError(ctx, err, "Failed to verify account balance", slog.String("account_id", acc.AccountID))
			failed = append(failed, acc.AccountID)
			continue
		}
		metrics.IntegrityAccountsChecked.Inc()
		checks = append(checks, *check)
	}
	return checks, failed, nil
}

func (s *integrityService) VerifyJournalBalances(ctx context.Context) ([]string, error) {
	journals, err := s.store.ListJournals(ctx, portsrepo.JournalFilter{Statuses: domain.BalanceStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}

	var unbalanced []string
	for _, j := range journals {
		precision, err := s.currency.Precision(ctx, j.CurrencyCode)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve precision of %s: %w", j.CurrencyCode, err)
		}
		txns, err := s.store.FindTransactionsByJournalID(ctx, j.JournalID)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve transactions for journal %s: %w", j.JournalID, err)
		}
		lines := accounting.LinesFromTransactions(txns)
		if !accounting.IsBalanced(lines, precision) {
			s.GetLogger(ctx).Warn("Unbalanced journal found",
				slog.String("journal_id", j.JournalID),
				slog.String("imbalance", moneymath.Format(accounting.Imbalance(lines, precision), precision)))
			unbalanced = append(unbalanced, j.JournalID)
		}
	}
	return unbalanced, nil
}

// RunStartupCheck never returns an error: every failure is logged and reflected in
// the summary so the application stays usable.
func (s *integrityService) RunStartupCheck(ctx context.Context) (summary domain.IntegritySummary) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.GetLogger(ctx).Error("Integrity check panicked", slog.Any("panic", r))
		}
		s.LogInfo(ctx, "Integrity check finished",
			slog.Int("accounts_checked", summary.AccountsChecked),
			slog.Int("discrepancies_found", summary.DiscrepanciesFound),
			slog.Int("repairs_attempted", summary.RepairsAttempted),
			slog.Int("repairs_successful", summary.RepairsSuccessful),
			slog.Int("failed", len(summary.FailedAccounts)),
			slog.Int("stale", len(summary.StaleAccounts)),
			slog.Duration("duration", time.Since(start)))
	}()

	checks, failed, err := s.VerifyAllAccountBalances(ctx)
	if err != nil {
		s.LogError(ctx, err, "Integrity check could not run")
		return summary
	}
	summary.AccountsChecked = len(checks)
	summary.FailedAccounts = failed

	for _, check := range checks {
		if check.Matches {
			continue
		}
		summary.DiscrepanciesFound++
		metrics.IntegrityDiscrepancies.Inc()
		s.GetLogger(ctx).Warn("Balance discrepancy found",
			slog.String("account_id", check.AccountID),
			slog.String("cached", check.CachedBalance.String()),
			slog.String("snapshot", check.SnapshotBalance.String()),
			slog.String("computed", check.ComputedBalance.String()),
			slog.String("discrepancy", check.Discrepancy.String()))

		summary.RepairsAttempted++
		if err := s.repair(ctx, check.AccountID); err != nil {
			metrics.IntegrityRepairs.WithLabelValues("error").Inc()
			s.LogError(ctx, err, "Repair failed, account left stale", slog.String("account_id", check.AccountID))
			summary.StaleAccounts = append(summary.StaleAccounts, check.AccountID)
			continue
		}
		metrics.IntegrityRepairs.WithLabelValues("ok").Inc()
		summary.RepairsSuccessful++
	}
	return summary
}

// repair rebuilds the account synchronously and confirms the caches now match.
func (s *integrityService) repair(ctx context.Context, accountID string) error {
	_, err := withTimeout(ctx, s.accountTimeout, func(ctx context.Context) (*domain.RebuildResult, error) {
		return s.queue.RebuildNow(ctx, accountID)
	})
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	check, err := withTimeout(ctx, s.accountTimeout, func(ctx context.Context) (*domain.BalanceCheck, error) {
		return s.VerifyAccountBalance(ctx, accountID)
	})
	if err != nil {
		return fmt.Errorf("re-verification failed: %w", err)
	}
	if !check.Matches {
		return fmt.Errorf("balance still differs by %s after rebuild", check.Discrepancy)
	}
	return nil
}
