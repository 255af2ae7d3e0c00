package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = func(n int) time.Time { return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC) }

func seed(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveAccount(ctx, domain.Account{AccountID: "wallet", AccountType: domain.Asset, CurrencyCode: "USD"}))
	require.NoError(t, s.SaveAccount(ctx, domain.Account{AccountID: "food", AccountType: domain.Expense, CurrencyCode: "USD"}))
	return s
}

func journal(id string, date time.Time) domain.Journal {
	return domain.Journal{JournalID: id, JournalDate: date, CurrencyCode: "USD", Status: domain.Posted,
		AuditFields: domain.AuditFields{CreatedAt: date}}
}

func lines(journalID string, date time.Time, amount string) []domain.Transaction {
	a := decimal.RequireFromString(amount)
	return []domain.Transaction{
		{TransactionID: journalID + "-1", JournalID: journalID, AccountID: "food", LineNo: 1, Amount: a, TransactionType: domain.Debit, TransactionDate: date, AuditFields: domain.AuditFields{CreatedAt: date}},
		{TransactionID: journalID + "-2", JournalID: journalID, AccountID: "wallet", LineNo: 2, Amount: a, TransactionType: domain.Credit, TransactionDate: date, AuditFields: domain.AuditFields{CreatedAt: date}},
	}
}

func TestStore_ListTransactionsOrderAndFilters(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j2", day(5)), lines("j2", day(5), "2"), nil))
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "1"), nil))
	require.NoError(t, s.SaveJournal(ctx, journal("j3", day(9)), lines("j3", day(9), "3"), nil))

	txns, err := s.ListTransactions(ctx, repositories.TransactionFilter{AccountID: "wallet"})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, []string{"j1", "j2", "j3"}, []string{txns[0].JournalID, txns[1].JournalID, txns[2].JournalID})
	assert.Equal(t, day(5), txns[1].JournalDate, "journal date is joined onto the line")

	from, to := day(2), day(6)
	txns, err = s.ListTransactions(ctx, repositories.TransactionFilter{AccountID: "wallet", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "j2", txns[0].JournalID)

	txns, err = s.ListTransactions(ctx, repositories.TransactionFilter{JournalID: "j3"})
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestStore_SoftDeleteJournalHidesLinesUnlessRequested(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "10"), map[string]decimal.Decimal{
		"food": decimal.NewFromInt(10), "wallet": decimal.NewFromInt(-10),
	}))

	require.NoError(t, s.SoftDeleteJournal(ctx, "j1", "tester", day(2), map[string]decimal.Decimal{
		"food": decimal.NewFromInt(-10), "wallet": decimal.NewFromInt(10),
	}))

	_, err := s.FindJournalByID(ctx, "j1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	active, err := s.ListTransactions(ctx, repositories.TransactionFilter{JournalID: "j1"})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListTransactions(ctx, repositories.TransactionFilter{JournalID: "j1", IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsDeleted())

	food, err := s.FindAccountByID(ctx, "food")
	require.NoError(t, err)
	assert.True(t, food.Balance.IsZero())
}

func TestStore_SaveReversalRejectsSecondReversal(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "10"), nil))
	require.NoError(t, s.SaveReversal(ctx, "j1", journal("r1", day(2)), lines("r1", day(2), "10"), nil))

	original, err := s.FindJournalByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.Reversed, original.Status)
	require.NotNil(t, original.ReversingJournalID)
	assert.Equal(t, "r1", *original.ReversingJournalID)

	err = s.SaveReversal(ctx, "j1", journal("r2", day(3)), lines("r2", day(3), "10"), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestStore_ReversedJournalRejectsReplaceAndDelete(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "10"), nil))
	original := "j1"
	reversal := journal("r1", day(2))
	reversal.OriginalJournalID = &original
	require.NoError(t, s.SaveReversal(ctx, "j1", reversal, lines("r1", day(2), "10"), nil))

	// a copy read before the reversal still says POSTED
	stale := journal("j1", day(5))
	err := s.ReplaceJournalTransactions(ctx, stale, lines("j1", day(5), "20"), nil, day(5))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	err = s.SoftDeleteJournal(ctx, "j1", "u1", day(5), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	j, err := s.FindJournalByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.Reversed, j.Status)
	require.NotNil(t, j.ReversingJournalID)
	assert.Equal(t, "r1", *j.ReversingJournalID)

	err = s.ReplaceJournalTransactions(ctx, reversal, lines("r1", day(5), "20"), nil, day(5))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	err = s.SoftDeleteJournal(ctx, "r1", "u1", day(5), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	txns, err := s.ListTransactions(ctx, repositories.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 4, "no line was tombstoned or replaced")
}

func TestStore_ReplaceKeepsReversalLinkFields(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "10"), nil))

	updated := journal("j1", day(3))
	updated.Description = "groceries"
	updated.Status = domain.Reversed
	require.NoError(t, s.ReplaceJournalTransactions(ctx, updated, lines("j1", day(3), "12"), nil, day(3)))

	j, err := s.FindJournalByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "groceries", j.Description)
	assert.Equal(t, day(3), j.JournalDate)
	assert.Equal(t, domain.Posted, j.Status, "status is not a replaceable field")
	assert.Nil(t, j.ReversingJournalID)
}

func TestStore_FailedWriteLeavesNoPartialState(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	s.FailWrites(errors.New("disk full"))

	err := s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "10"), map[string]decimal.Decimal{"food": decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperrors.ErrStoreWrite)

	s.FailWrites(nil)
	_, err = s.FindJournalByID(ctx, "j1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	txns, err := s.ListTransactions(ctx, repositories.TransactionFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestStore_SaveJournalUnknownAccountWritesNothing(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	txns := lines("j1", day(1), "10")
	txns[1].AccountID = "ghost"

	err := s.SaveJournal(ctx, journal("j1", day(1)), txns, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = s.FindJournalByID(ctx, "j1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_FindLatestRunningBalance(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	j1 := lines("j1", day(1), "10")
	j1[1].RunningBalance = decimal.NewFromInt(-10)
	j2 := lines("j2", day(5), "5")
	j2[1].RunningBalance = decimal.NewFromInt(-15)
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), j1, nil))
	require.NoError(t, s.SaveJournal(ctx, journal("j2", day(5)), j2, nil))

	got, err := s.FindLatestRunningBalance(ctx, "wallet", day(3))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-10).Equal(got))

	got, err = s.FindLatestRunningBalance(ctx, "wallet", day(5))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-15).Equal(got))

	got, err = s.FindLatestRunningBalance(ctx, "wallet", day(0))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestStore_UpdateRunningBalancesCountsWrites(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.SaveJournal(ctx, journal("j1", day(1)), lines("j1", day(1), "10"), nil))

	snapshot := decimal.NewFromInt(-10)
	require.NoError(t, s.UpdateRunningBalances(ctx, "wallet", map[string]decimal.Decimal{"j1-2": snapshot}, &snapshot))
	assert.Equal(t, 1, s.RunningBalanceWrites())

	err := s.UpdateRunningBalances(ctx, "wallet", map[string]decimal.Decimal{"j1-1": snapshot}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "line belongs to another account")
	assert.Equal(t, 1, s.RunningBalanceWrites())

	wallet, err := s.FindAccountByID(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, snapshot.Equal(wallet.Balance))
}
