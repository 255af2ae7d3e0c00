package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/core/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type JournalServiceTestSuite struct {
	suite.Suite
	store    *memory.Store
	queue    *MockRebuildQueue
	recorder *recorder
	service  portssvc.JournalSvcFacade
	ctx      context.Context
	now      time.Time
}

func (suite *JournalServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	suite.store = memory.NewStore()
	suite.queue = new(MockRebuildQueue)
	suite.queue.On("EnqueueMany", mock.Anything, mock.Anything, mock.Anything).Return()
	suite.recorder = &recorder{}
	suite.service = services.NewJournalService(suite.store, newCurrencyService(), suite.queue,
		services.WithAuditService(suite.recorder),
		services.WithChangeNotifier(suite.recorder),
		services.WithClock(func() time.Time { return suite.now }),
	)

	t := suite.T()
	saveAccount(t, suite.store, "wallet", domain.Asset, "USD")
	saveAccount(t, suite.store, "food", domain.Expense, "USD")
	saveAccount(t, suite.store, "fun", domain.Expense, "USD")
	saveAccount(t, suite.store, "salary", domain.Income, "USD")
	saveAccount(t, suite.store, "eur-cash", domain.Asset, "EUR")
	saveAccount(t, suite.store, "gbp-cash", domain.Asset, "GBP")
}

func TestJournalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(JournalServiceTestSuite))
}

func (suite *JournalServiceTestSuite) create(date time.Time, description string, lines ...dto.LineInput) *domain.Journal {
	journal, err := suite.service.CreateJournalWithTransactions(suite.ctx, dto.CreateJournalRequest{
		Date:         date,
		Description:  description,
		CurrencyCode: "USD",
		Lines:        lines,
		UserID:       "user-1",
	})
	suite.Require().NoError(err)
	return journal
}

func (suite *JournalServiceTestSuite) balance(accountID string) string {
	acc, err := suite.store.FindAccountByID(suite.ctx, accountID)
	suite.Require().NoError(err)
	return acc.Balance.StringFixed(2)
}

func (suite *JournalServiceTestSuite) activeLines(journalID string) []domain.Transaction {
	txns, err := suite.store.ListTransactions(suite.ctx, portsrepo.TransactionFilter{JournalID: journalID})
	suite.Require().NoError(err)
	return txns
}

func (suite *JournalServiceTestSuite) TestCreateJournal_Success() {
	journal := suite.create(day(1), "Lunch",
		line("food", "5.50", domain.Debit),
		line("wallet", "5.50", domain.Credit),
	)

	suite.Equal(domain.Posted, journal.Status)
	suite.Equal("5.50", journal.TotalAmount.StringFixed(2))
	suite.Equal(2, journal.TransactionCount)
	suite.Equal(suite.now, journal.CreatedAt)
	suite.Require().Len(journal.Transactions, 2)
	suite.Equal(1, journal.Transactions[0].LineNo)
	suite.Equal(2, journal.Transactions[1].LineNo)
	suite.Equal("5.50", journal.Transactions[0].RunningBalance.StringFixed(2))
	suite.Equal("-5.50", journal.Transactions[1].RunningBalance.StringFixed(2))

	stored, err := suite.store.FindJournalByID(suite.ctx, journal.JournalID)
	suite.Require().NoError(err)
	suite.Equal("Lunch", stored.Description)
	suite.Len(suite.activeLines(journal.JournalID), 2)

	suite.Equal("5.50", suite.balance("food"))
	suite.Equal("-5.50", suite.balance("wallet"))

	suite.queue.AssertCalled(suite.T(), "EnqueueMany", mock.Anything, []string{"food", "wallet"}, day(1))
	suite.Equal([]domain.AuditAction{domain.ActionCreate}, suite.recorder.actions())
	suite.Require().Len(suite.recorder.changes, 1)
	suite.Equal([]string{journal.JournalID}, suite.recorder.changes[0].JournalIDs)
}

func (suite *JournalServiceTestSuite) TestCreateJournal_RepeatedAccountAccumulatesWithinJournal() {
	journal := suite.create(day(1), "Split",
		line("wallet", "3.00", domain.Credit),
		line("wallet", "2.00", domain.Credit),
		line("food", "5.00", domain.Debit),
	)

	suite.Equal("-3.00", journal.Transactions[0].RunningBalance.StringFixed(2))
	suite.Equal("-5.00", journal.Transactions[1].RunningBalance.StringFixed(2))
	suite.Equal("-5.00", suite.balance("wallet"))
}

func (suite *JournalServiceTestSuite) TestCreateJournal_ProvisionalBalanceUsesLatestEarlierLine() {
	suite.create(day(5), "Pay", line("wallet", "100.00", domain.Debit), line("salary", "100.00", domain.Credit))

	earlier := suite.create(day(3), "Coffee", line("food", "10.00", domain.Debit), line("wallet", "10.00", domain.Credit))
	later := suite.create(day(7), "Dinner", line("food", "20.00", domain.Debit), line("wallet", "20.00", domain.Credit))

	suite.Equal("-10.00", earlier.Transactions[1].RunningBalance.StringFixed(2))
	// the backdated line is not yet reflected; the queued rebuild fixes it
	suite.Equal("80.00", later.Transactions[1].RunningBalance.StringFixed(2))
	suite.Equal("70.00", suite.balance("wallet"))
}

func (suite *JournalServiceTestSuite) TestCreateJournal_Unbalanced() {
	_, err := suite.service.CreateJournalWithTransactions(suite.ctx, dto.CreateJournalRequest{
		Date:         day(1),
		CurrencyCode: "USD",
		Lines:        []dto.LineInput{line("food", "100", domain.Debit), line("wallet", "50", domain.Credit)},
	})

	suite.Require().ErrorIs(err, apperrors.ErrValidation)
	suite.ErrorContains(err, "50.00")

	journals, listErr := suite.store.ListJournals(suite.ctx, portsrepo.JournalFilter{IncludeDeleted: true})
	suite.Require().NoError(listErr)
	suite.Empty(journals)
	suite.queue.AssertNotCalled(suite.T(), "EnqueueMany", mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.recorder.actions())
}

func (suite *JournalServiceTestSuite) TestCreateJournal_ValidationProblems() {
	tests := []struct {
		name    string
		lines   []dto.LineInput
		problem string
	}{
		{
			name:    "single line",
			lines:   []dto.LineInput{line("food", "10", domain.Debit)},
			problem: "at least two transaction lines",
		},
		{
			name:    "same account on both sides",
			lines:   []dto.LineInput{line("food", "10", domain.Debit), line("food", "10", domain.Credit)},
			problem: "two distinct accounts",
		},
		{
			name:    "zero amount",
			lines:   []dto.LineInput{line("food", "0", domain.Debit), line("wallet", "0", domain.Credit)},
			problem: "zero amount",
		},
		{
			name:    "too many decimals",
			lines:   []dto.LineInput{line("food", "5.555", domain.Debit), line("wallet", "5.555", domain.Credit)},
			problem: "more than 2 decimal places",
		},
		{
			name:    "missing exchange rate",
			lines:   []dto.LineInput{line("gbp-cash", "10", domain.Debit), line("salary", "12", domain.Credit)},
			problem: "needs an exchange rate from GBP to USD",
		},
		{
			name: "rate on same-currency line",
			lines: []dto.LineInput{
				{AccountID: "food", Amount: dec("10"), Type: domain.Debit, ExchangeRate: decPtr("2")},
				line("wallet", "10", domain.Credit),
			},
			problem: "already in USD",
		},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.CreateJournalWithTransactions(suite.ctx, dto.CreateJournalRequest{
				Date: day(1), CurrencyCode: "USD", Lines: tt.lines,
			})
			suite.Require().ErrorIs(err, apperrors.ErrValidation)
			suite.ErrorContains(err, tt.problem)
		})
	}
}

func (suite *JournalServiceTestSuite) TestCreateJournal_UnknownAccount() {
	_, err := suite.service.CreateJournalWithTransactions(suite.ctx, dto.CreateJournalRequest{
		Date:         day(1),
		CurrencyCode: "USD",
		Lines:        []dto.LineInput{line("food", "10", domain.Debit), line("ghost", "10", domain.Credit)},
	})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalServiceTestSuite) TestCreateJournal_UnsupportedCurrency() {
	_, err := suite.service.CreateJournalWithTransactions(suite.ctx, dto.CreateJournalRequest{
		Date:         day(1),
		CurrencyCode: "XXQ",
		Lines:        []dto.LineInput{line("food", "10", domain.Debit), line("wallet", "10", domain.Credit)},
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *JournalServiceTestSuite) TestCreateJournal_CrossCurrency() {
	journal := suite.create(day(2), "Sold euros",
		dto.LineInput{AccountID: "eur-cash", Amount: dec("100"), Type: domain.Debit, ExchangeRate: decPtr("1.10")},
		line("salary", "110", domain.Credit),
	)

	suite.Equal("110.00", journal.TotalAmount.StringFixed(2))
	eurLine := journal.Transactions[0]
	suite.Equal("EUR", eurLine.CurrencyCode)
	suite.Require().NotNil(eurLine.ExchangeRate)
	suite.Equal("1.1", eurLine.ExchangeRate.String())
	suite.Equal("100.00", suite.balance("eur-cash"))
	suite.Equal("110.00", suite.balance("salary"))
}

func (suite *JournalServiceTestSuite) TestCreateJournal_CrossCurrencyLooksUpRate() {
	journal := suite.create(day(2), "Sold euros",
		line("eur-cash", "100", domain.Debit),
		line("salary", "110", domain.Credit),
	)

	suite.Require().NotNil(journal.Transactions[0].ExchangeRate)
	suite.Equal("1.1", journal.Transactions[0].ExchangeRate.String())
	suite.Nil(journal.Transactions[1].ExchangeRate)
}

func (suite *JournalServiceTestSuite) TestCreateJournal_StoreFailureLeavesNothing() {
	suite.store.FailWrites(errors.New("disk full"))

	_, err := suite.service.CreateJournalWithTransactions(suite.ctx, dto.CreateJournalRequest{
		Date:         day(1),
		CurrencyCode: "USD",
		Lines:        []dto.LineInput{line("food", "10", domain.Debit), line("wallet", "10", domain.Credit)},
	})

	suite.Require().ErrorIs(err, apperrors.ErrStoreWrite)
	suite.ErrorContains(err, "disk full")
	suite.Equal("0.00", suite.balance("wallet"))
	suite.queue.AssertNotCalled(suite.T(), "EnqueueMany", mock.Anything, mock.Anything, mock.Anything)
	suite.Empty(suite.recorder.actions())
}

func (suite *JournalServiceTestSuite) TestUpdateJournal_ReplacesLines() {
	journal := suite.create(day(2), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	newDate := day(1)
	lines := []dto.LineInput{line("fun", "7.00", domain.Debit), line("wallet", "7.00", domain.Credit)}
	updated, err := suite.service.UpdateJournalWithTransactions(suite.ctx, journal.JournalID, dto.JournalPatch{
		Date:   &newDate,
		Lines:  &lines,
		UserID: "user-2",
	})
	suite.Require().NoError(err)

	suite.Equal(day(1), updated.JournalDate)
	suite.Equal("7.00", updated.TotalAmount.StringFixed(2))
	suite.Equal("user-2", updated.LastUpdatedBy)
	suite.Equal("Lunch", updated.Description)

	active := suite.activeLines(journal.JournalID)
	suite.Require().Len(active, 2)
	suite.Equal("fun", active[0].AccountID)

	all, err := suite.store.ListTransactions(suite.ctx, portsrepo.TransactionFilter{JournalID: journal.JournalID, IncludeDeleted: true})
	suite.Require().NoError(err)
	suite.Len(all, 4)

	suite.Equal("0.00", suite.balance("food"))
	suite.Equal("7.00", suite.balance("fun"))
	suite.Equal("-7.00", suite.balance("wallet"))

	// the removed account is rebuilt too, from the earlier of the two dates
	suite.queue.AssertCalled(suite.T(), "EnqueueMany", mock.Anything, []string{"food", "wallet", "fun"}, day(1))
	suite.Equal([]domain.AuditAction{domain.ActionCreate, domain.ActionUpdate}, suite.recorder.actions())
}

func (suite *JournalServiceTestSuite) TestUpdateJournal_DescriptionKeepsLines() {
	journal := suite.create(day(2), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	description := "Team lunch"
	updated, err := suite.service.UpdateJournalWithTransactions(suite.ctx, journal.JournalID, dto.JournalPatch{Description: &description})
	suite.Require().NoError(err)

	suite.Equal("Team lunch", updated.Description)
	suite.Equal(2, updated.TransactionCount)
	suite.Equal("5.50", suite.balance("food"))
	suite.Equal("-5.50", suite.balance("wallet"))
}

func (suite *JournalServiceTestSuite) TestUpdateJournal_EmptyPatchIsNoop() {
	journal := suite.create(day(2), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	got, err := suite.service.UpdateJournalWithTransactions(suite.ctx, journal.JournalID, dto.JournalPatch{})
	suite.Require().NoError(err)
	suite.Len(got.Transactions, 2)
	suite.Equal([]domain.AuditAction{domain.ActionCreate}, suite.recorder.actions())
}

func (suite *JournalServiceTestSuite) TestUpdateJournal_InvalidLinesKeepOriginal() {
	journal := suite.create(day(2), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	lines := []dto.LineInput{line("food", "100", domain.Debit), line("wallet", "50", domain.Credit)}
	_, err := suite.service.UpdateJournalWithTransactions(suite.ctx, journal.JournalID, dto.JournalPatch{Lines: &lines})
	suite.Require().ErrorIs(err, apperrors.ErrValidation)

	active := suite.activeLines(journal.JournalID)
	suite.Require().Len(active, 2)
	suite.Equal("5.50", active[0].Amount.StringFixed(2))
}

func (suite *JournalServiceTestSuite) TestUpdateJournal_NotFound() {
	description := "x"
	_, err := suite.service.UpdateJournalWithTransactions(suite.ctx, "missing", dto.JournalPatch{Description: &description})
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalServiceTestSuite) TestDeleteJournal() {
	journal := suite.create(day(3), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	err := suite.service.DeleteJournal(suite.ctx, journal.JournalID, "user-1")
	suite.Require().NoError(err)

	_, err = suite.store.FindJournalByID(suite.ctx, journal.JournalID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Empty(suite.activeLines(journal.JournalID))
	suite.Equal("0.00", suite.balance("food"))
	suite.Equal("0.00", suite.balance("wallet"))
	suite.queue.AssertNumberOfCalls(suite.T(), "EnqueueMany", 2)
	suite.Equal([]domain.AuditAction{domain.ActionCreate, domain.ActionDelete}, suite.recorder.actions())

	err = suite.service.DeleteJournal(suite.ctx, journal.JournalID, "user-1")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalServiceTestSuite) TestReverseJournal() {
	original := suite.create(day(1), "Groceries", line("food", "15.00", domain.Debit), line("wallet", "15.00", domain.Credit))

	reversalDate := day(4)
	reversal, err := suite.service.CreateReversalJournal(suite.ctx, original.JournalID, dto.ReverseJournalRequest{Date: &reversalDate, UserID: "user-1"})
	suite.Require().NoError(err)

	suite.Equal("Reversal of Journal: Groceries", reversal.Description)
	suite.Equal(day(4), reversal.JournalDate)
	suite.Equal(domain.Posted, reversal.Status)
	suite.Require().NotNil(reversal.OriginalJournalID)
	suite.Equal(original.JournalID, *reversal.OriginalJournalID)
	suite.Require().Len(reversal.Transactions, 2)
	suite.Equal(domain.Credit, reversal.Transactions[0].TransactionType)
	suite.Equal(domain.Debit, reversal.Transactions[1].TransactionType)

	stored, err := suite.store.FindJournalByID(suite.ctx, original.JournalID)
	suite.Require().NoError(err)
	suite.Equal(domain.Reversed, stored.Status)
	suite.Require().NotNil(stored.ReversingJournalID)
	suite.Equal(reversal.JournalID, *stored.ReversingJournalID)

	// both journals stay active and net to zero
	suite.Len(suite.activeLines(original.JournalID), 2)
	suite.Equal("0.00", suite.balance("food"))
	suite.Equal("0.00", suite.balance("wallet"))
	suite.queue.AssertCalled(suite.T(), "EnqueueMany", mock.Anything, []string{"food", "wallet"}, day(1))
}

func (suite *JournalServiceTestSuite) TestReverseJournal_DefaultsDateToNow() {
	original := suite.create(day(1), "Groceries", line("food", "15.00", domain.Debit), line("wallet", "15.00", domain.Credit))

	reversal, err := suite.service.CreateReversalJournal(suite.ctx, original.JournalID, dto.ReverseJournalRequest{Description: "Refund"})
	suite.Require().NoError(err)
	suite.Equal(suite.now, reversal.JournalDate)
	suite.Equal("Refund", reversal.Description)
}

func (suite *JournalServiceTestSuite) TestReversalLinkedJournalsAreFrozen() {
	original := suite.create(day(1), "Groceries", line("food", "15.00", domain.Debit), line("wallet", "15.00", domain.Credit))
	reversal, err := suite.service.CreateReversalJournal(suite.ctx, original.JournalID, dto.ReverseJournalRequest{})
	suite.Require().NoError(err)

	_, err = suite.service.CreateReversalJournal(suite.ctx, original.JournalID, dto.ReverseJournalRequest{})
	suite.ErrorIs(err, apperrors.ErrConflict, "second reversal")

	_, err = suite.service.CreateReversalJournal(suite.ctx, reversal.JournalID, dto.ReverseJournalRequest{})
	suite.ErrorIs(err, apperrors.ErrConflict, "reversing a reversal")

	description := "edited"
	for _, id := range []string{original.JournalID, reversal.JournalID} {
		_, err = suite.service.UpdateJournalWithTransactions(suite.ctx, id, dto.JournalPatch{Description: &description})
		suite.ErrorIs(err, apperrors.ErrConflict)
		suite.ErrorIs(suite.service.DeleteJournal(suite.ctx, id, "user-1"), apperrors.ErrConflict)
	}
}

func (suite *JournalServiceTestSuite) TestGetJournal() {
	journal := suite.create(day(1), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	got, err := suite.service.GetJournal(suite.ctx, journal.JournalID)
	suite.Require().NoError(err)
	suite.Equal(journal.JournalID, got.JournalID)
	suite.Len(got.Transactions, 2)

	_, err = suite.service.GetJournal(suite.ctx, "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalServiceTestSuite) TestListTransactions_AccountInBalanceOrder() {
	suite.create(day(3), "Dinner", line("food", "20.00", domain.Debit), line("wallet", "20.00", domain.Credit))
	suite.create(day(1), "Lunch", line("food", "5.50", domain.Debit), line("wallet", "5.50", domain.Credit))

	txns, err := suite.service.ListTransactions(suite.ctx, portsrepo.TransactionFilter{AccountID: "wallet"})
	suite.Require().NoError(err)
	suite.Require().Len(txns, 2)
	suite.Equal(day(1), txns[0].JournalDate)
	suite.Equal(day(3), txns[1].JournalDate)
}
