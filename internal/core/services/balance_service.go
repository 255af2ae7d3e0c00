package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/utils/accounting"
	"github.com/SscSPs/mma_ledger/internal/utils/moneymath"
	"github.com/shopspring/decimal"
)

// balanceService recomputes running balances from the active transaction log.
type balanceService struct {
	BaseService
	store    portsrepo.LedgerStore
	currency portssvc.CurrencySvc
}

// accountLedger is an account's active lines with their recomputed running balances.
type accountLedger struct {
	account   domain.Account
	precision int32
	txns      []domain.Transaction
	running   []decimal.Decimal
}

// computed returns the authoritative balance: the last recomputed running balance.
func (l *accountLedger) computed() decimal.Decimal {
	if len(l.running) == 0 {
		return decimal.Zero
	}
	return l.running[len(l.running)-1]
}

// cached returns the running balance stored on the latest active line.
func (l *accountLedger) cached() decimal.Decimal {
	if len(l.txns) == 0 {
		return decimal.Zero
	}
	return l.txns[len(l.txns)-1].RunningBalance
}

// NewBalanceService creates the running-balance rebuilder.
func NewBalanceService(store portsrepo.LedgerStore, currency portssvc.CurrencySvc) portssvc.BalanceRebuilderSvc {
	return newBalanceService(store, currency)
}

func newBalanceService(store portsrepo.LedgerStore, currency portssvc.CurrencySvc) *balanceService {
	return &balanceService{store: store, currency: currency}
}

var _ portssvc.BalanceRebuilderSvc = (*balanceService)(nil)

// load fetches the account and walks its active lines of POSTED and REVERSED
// journals in balance order, accumulating signed amounts.
func (s *balanceService) load(ctx context.Context, accountID string) (*accountLedger, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	precision, err := s.currency.Precision(ctx, account.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve precision of %s: %w", account.CurrencyCode, err)
	}
	txns, err := s.store.ListTransactions(ctx, portsrepo.BalanceFilter(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of account %s: %w", accountID, err)
	}
	running, err := accounting.AccumulateBalance(txns, account.AccountType, precision)
	if err != nil {
		return nil, fmt.Errorf("failed to accumulate balance of account %s: %w", accountID, err)
	}
	return &accountLedger{account: *account, precision: precision, txns: txns, running: running}, nil
}

func (s *balanceService) RebuildRunningBalances(ctx context.Context, accountID string) (*domain.RebuildResult, error) {
	ledger, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]decimal.Decimal)
	for i, txn := range ledger.txns {
		if moneymath.Differs(txn.RunningBalance, ledger.running[i], ledger.precision) {
			updates[txn.TransactionID] = ledger.running[i]
		}
	}

	final := ledger.computed()
	var snapshot *decimal.Decimal
	if moneymath.Differs(ledger.account.Balance, final, ledger.precision) {
		snapshot = &final
	}

	if len(updates) > 0 || snapshot != nil {
		if err := s.store.UpdateRunningBalances(ctx, accountID, updates, snapshot); err != nil {
			return nil, fmt.Errorf("failed to write running balances of account %s: %w", accountID, err)
		}
	}

	s.LogDebug(ctx, "Running balances rebuilt",
		slog.String("account_id", accountID),
		slog.Int("examined", len(ledger.txns)),
		slog.Int("written", len(updates)),
		slog.Bool("snapshot_updated", snapshot != nil),
		slog.String("balance", moneymath.Format(final, ledger.precision)))

	return &domain.RebuildResult{
		AccountID:    accountID,
		Examined:     len(ledger.txns),
		Written:      len(updates),
		FinalBalance: final,
	}, nil
}
