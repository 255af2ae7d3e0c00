package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time { return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	s, err := New(ctx, db)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	for _, acc := range []domain.Account{
		{AccountID: "wallet", Name: "Wallet", AccountType: domain.Asset, CurrencyCode: "USD"},
		{AccountID: "food", Name: "Food", AccountType: domain.Expense, CurrencyCode: "USD"},
	} {
		acc.AuditFields = domain.AuditFields{CreatedAt: day(1), LastUpdatedAt: day(1)}
		require.NoError(t, s.SaveAccount(ctx, acc))
	}
	return s
}

func journal(id string, date time.Time) domain.Journal {
	return domain.Journal{JournalID: id, JournalDate: date, CurrencyCode: "USD", Status: domain.Posted,
		TransactionCount: 2, AuditFields: domain.AuditFields{CreatedAt: date, LastUpdatedAt: date}}
}

func lines(journalID string, date time.Time, amount string) []domain.Transaction {
	audit := domain.AuditFields{CreatedAt: date, LastUpdatedAt: date}
	return []domain.Transaction{
		{TransactionID: journalID + "-1", JournalID: journalID, AccountID: "food", LineNo: 1, Amount: dec(amount),
			TransactionType: domain.Debit, CurrencyCode: "USD", TransactionDate: date, AuditFields: audit},
		{TransactionID: journalID + "-2", JournalID: journalID, AccountID: "wallet", LineNo: 2, Amount: dec(amount),
			TransactionType: domain.Credit, CurrencyCode: "USD", TransactionDate: date, AuditFields: audit},
	}
}

func moves(amount string) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"food": dec(amount), "wallet": dec(amount).Neg()}
}

func TestStore_AccountsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	acc, err := s.FindAccountByID(ctx, "wallet")
	require.NoError(t, err)
	assert.Equal(t, "Wallet", acc.Name)
	assert.Equal(t, day(1), acc.CreatedAt)
	assert.True(t, acc.Balance.IsZero())

	err = s.SaveAccount(ctx, domain.Account{AccountID: "wallet", AccountType: domain.Asset, CurrencyCode: "USD"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	parent := "nope"
	err = s.SaveAccount(ctx, domain.Account{AccountID: "child", AccountType: domain.Asset, CurrencyCode: "USD", ParentAccountID: &parent})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	found, err := s.FindAccountsByIDs(ctx, []string{"wallet", "food", "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	require.NoError(t, s.SoftDeleteAccount(ctx, "food", "tester", day(3)))
	_, err = s.FindAccountByID(ctx, "food")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, s.SoftDeleteAccount(ctx, "food", "tester", day(3)), apperrors.ErrNotFound)

	all, err := s.ListAccounts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := s.ListAccounts(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestStore_SaveJournalOrdersAndAppliesSnapshots(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j2", day(12)), lines("j2", day(12), "2.50"), moves("2.50")))
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(2)), lines("j1", day(2), "10.25"), moves("10.25")))

	txns, err := s.ListTransactions(ctx, portsrepo.BalanceFilter("wallet"))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "j1", txns[0].JournalID, "day 2 sorts before day 12")
	assert.Equal(t, day(12), txns[1].JournalDate)
	assert.Equal(t, domain.Posted, txns[1].JournalStatus)
	assert.True(t, dec("10.25").Equal(txns[0].Amount))
	assert.Nil(t, txns[0].ExchangeRate)

	wallet, err := s.FindAccountByID(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, dec("-12.75").Equal(wallet.Balance), "got %s", wallet.Balance)

	limited, err := s.ListTransactions(ctx, portsrepo.TransactionFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	err = s.SaveJournal(ctx, journal("j1", day(2)), lines("j1-again", day(2), "1"), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestStore_SaveJournalIsAtomic(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	bad := lines("j1", day(2), "5")
	bad[1].AccountID = "ghost"

	err := s.SaveJournal(ctx, journal("j1", day(2)), bad, moves("5"))
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.FindJournalByID(ctx, "j1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	food, err := s.FindAccountByID(ctx, "food")
	require.NoError(t, err)
	assert.True(t, food.Balance.IsZero())
}

func TestStore_ReplaceAndDeleteTombstoneLines(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(2)), lines("j1", day(2), "10"), moves("10")))

	updated := journal("j1", day(3))
	updated.Description = "corrected"
	updated.TotalAmount = dec("4")
	updated.LastUpdatedAt = day(4)
	replacement := lines("j1", day(3), "4")
	replacement[0].TransactionID, replacement[1].TransactionID = "j1-3", "j1-4"
	delta := map[string]decimal.Decimal{"food": dec("-6"), "wallet": dec("6")}
	require.NoError(t, s.ReplaceJournalTransactions(ctx, updated, replacement, delta, day(4)))

	j, err := s.FindJournalByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "corrected", j.Description)
	assert.Equal(t, day(3), j.JournalDate)

	active, err := s.FindTransactionsByJournalID(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "j1-3", active[0].TransactionID)

	all, err := s.ListTransactions(ctx, portsrepo.TransactionFilter{JournalID: "j1", IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, s.SoftDeleteJournal(ctx, "j1", "tester", day(5), moves("-4")))
	_, err = s.FindJournalByID(ctx, "j1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	left, err := s.ListTransactions(ctx, portsrepo.TransactionFilter{JournalID: "j1"})
	require.NoError(t, err)
	assert.Empty(t, left)

	wallet, err := s.FindAccountByID(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero(), "got %s", wallet.Balance)

	assert.ErrorIs(t, s.SoftDeleteJournal(ctx, "j1", "tester", day(5), nil), apperrors.ErrNotFound)
}

func TestStore_SaveReversalLinksAndRejectsSecond(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(2)), lines("j1", day(2), "7"), moves("7")))

	original := "j1"
	reversal := journal("r1", day(3))
	reversal.OriginalJournalID = &original
	revLines := lines("r1", day(3), "7")
	revLines[0].TransactionType, revLines[1].TransactionType = domain.Credit, domain.Debit
	require.NoError(t, s.SaveReversal(ctx, "j1", reversal, revLines, moves("-7")))

	j, err := s.FindJournalByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.Reversed, j.Status)
	require.NotNil(t, j.ReversingJournalID)
	assert.Equal(t, "r1", *j.ReversingJournalID)

	r, err := s.FindJournalByID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, r.OriginalJournalID)
	assert.Equal(t, "j1", *r.OriginalJournalID)

	again := journal("r2", day(4))
	again.OriginalJournalID = &original
	err = s.SaveReversal(ctx, "j1", again, lines("r2", day(4), "7"), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	reversed, err := s.ListJournals(ctx, portsrepo.JournalFilter{Statuses: []domain.JournalStatus{domain.Reversed}})
	require.NoError(t, err)
	require.Len(t, reversed, 1)
	assert.Equal(t, "j1", reversed[0].JournalID)
}

func TestStore_ReversedJournalRejectsReplaceAndDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(2)), lines("j1", day(2), "7"), moves("7")))
	original := "j1"
	reversal := journal("r1", day(3))
	reversal.OriginalJournalID = &original
	require.NoError(t, s.SaveReversal(ctx, "j1", reversal, lines("r1", day(3), "7"), moves("-7")))

	err := s.ReplaceJournalTransactions(ctx, journal("j1", day(5)), lines("j1", day(5), "9"), moves("2"), day(5))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	err = s.SoftDeleteJournal(ctx, "j1", "u1", day(5), moves("-7"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	err = s.ReplaceJournalTransactions(ctx, reversal, lines("r1", day(5), "9"), nil, day(5))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	err = s.SoftDeleteJournal(ctx, "r1", "u1", day(5), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	j, err := s.FindJournalByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.Reversed, j.Status)
	assert.Equal(t, day(2), j.JournalDate)

	txns, err := s.ListTransactions(ctx, portsrepo.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 4)
	food, err := s.FindAccountByID(ctx, "food")
	require.NoError(t, err)
	assert.True(t, food.Balance.IsZero(), "rejected writes applied no snapshot delta")
}

func TestStore_RunningBalances(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(2)), lines("j1", day(2), "10"), nil))
	require.NoError(t, s.SaveJournal(ctx, journal("j2", day(6)), lines("j2", day(6), "5"), nil))

	snapshot := dec("-15")
	require.NoError(t, s.UpdateRunningBalances(ctx, "wallet", map[string]decimal.Decimal{
		"j1-2": dec("-10"), "j2-2": dec("-15"),
	}, &snapshot))

	rb, err := s.FindLatestRunningBalance(ctx, "wallet", day(4))
	require.NoError(t, err)
	assert.True(t, dec("-10").Equal(rb), "got %s", rb)
	rb, err = s.FindLatestRunningBalance(ctx, "wallet", day(6))
	require.NoError(t, err)
	assert.True(t, dec("-15").Equal(rb), "as of is inclusive, got %s", rb)
	rb, err = s.FindLatestRunningBalance(ctx, "wallet", day(1))
	require.NoError(t, err)
	assert.True(t, rb.IsZero())

	wallet, err := s.FindAccountByID(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(wallet.Balance))

	err = s.UpdateRunningBalances(ctx, "wallet", map[string]decimal.Decimal{"j1-1": dec("1")}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "a line of another account is not updated")

	require.NoError(t, s.SoftDeleteTransaction(ctx, "j2-2", day(7)))
	assert.ErrorIs(t, s.SoftDeleteTransaction(ctx, "j2-2", day(7)), apperrors.ErrNotFound)
	rb, err = s.FindLatestRunningBalance(ctx, "wallet", day(9))
	require.NoError(t, err)
	assert.True(t, dec("-10").Equal(rb), "tombstoned lines are skipped, got %s", rb)
}
