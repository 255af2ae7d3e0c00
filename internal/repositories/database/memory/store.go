// Package memory provides an in-process LedgerStore used by tests and by the
// `memory` store driver.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// Store keeps accounts, journals and transactions in maps guarded by a single
// RWMutex: one writer at a time, concurrent readers.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	journals     map[string]domain.Journal
	transactions map[string]domain.Transaction

	writeErr             error
	runningBalanceWrites int
}

var _ repositories.LedgerStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		journals:     make(map[string]domain.Journal),
		transactions: make(map[string]domain.Transaction),
	}
}

// FailWrites makes every subsequent write return err without changing state.
// Pass nil to restore normal behaviour.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// RunningBalanceWrites returns how many running-balance rows have been rewritten.
func (s *Store) RunningBalanceWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runningBalanceWrites
}

// SetRunningBalance overwrites one cached running balance, bypassing the rebuild.
// It exists to simulate a corrupted cache.
func (s *Store) SetRunningBalance(transactionID string, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.transactions[transactionID]; ok {
		txn.RunningBalance = value
		s.transactions[transactionID] = txn
	}
}

// SetAccountBalance overwrites an account snapshot, bypassing the rebuild.
func (s *Store) SetAccountBalance(accountID string, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[accountID]; ok {
		acc.Balance = value
		s.accounts[accountID] = acc
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

func (s *Store) checkWritable(op string) error {
	if s.writeErr != nil {
		return apperrors.NewStoreWriteError(op, s.writeErr)
	}
	return nil
}

// --- accounts ---

func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok || acc.IsDeleted() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	return &acc, nil
}

func (s *Store) FindAccountsByIDs(_ context.Context, accountIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := s.accounts[id]; ok && !acc.IsDeleted() {
			result[id] = acc
		}
	}
	return result, nil
}

func (s *Store) ListAccounts(_ context.Context, includeDeleted bool) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		if acc.IsDeleted() && !includeDeleted {
			continue
		}
		accounts = append(accounts, acc)
	}
	slices.SortFunc(accounts, func(a, b domain.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.AccountID < b.AccountID {
			return -1
		}
		if a.AccountID > b.AccountID {
			return 1
		}
		return 0
	})
	return accounts, nil
}

func (s *Store) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to save account"); err != nil {
		return err
	}
	if _, exists := s.accounts[account.AccountID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("account %s already exists", account.AccountID))
	}
	s.accounts[account.AccountID] = account
	return nil
}

func (s *Store) SoftDeleteAccount(_ context.Context, accountID string, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to delete account"); err != nil {
		return err
	}
	acc, ok := s.accounts[accountID]
	if !ok || acc.IsDeleted() {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	acc.MarkDeleted(at)
	acc.LastUpdatedAt = at
	acc.LastUpdatedBy = userID
	s.accounts[accountID] = acc
	return nil
}

// --- journals ---

func (s *Store) FindJournalByID(_ context.Context, journalID string) (*domain.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.journals[journalID]
	if !ok || j.IsDeleted() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", journalID))
	}
	return &j, nil
}

func (s *Store) ListJournals(_ context.Context, filter repositories.JournalFilter) ([]domain.Journal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txnFilter := repositories.TransactionFilter{From: filter.From, To: filter.To, Statuses: filter.Statuses}
	journals := make([]domain.Journal, 0, len(s.journals))
	for _, j := range s.journals {
		if j.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if !txnFilter.MatchesStatus(j.Status) || !txnFilter.MatchesDate(j.JournalDate) {
			continue
		}
		journals = append(journals, j)
	}
	slices.SortFunc(journals, func(a, b domain.Journal) int {
		if c := a.JournalDate.Compare(b.JournalDate); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return journals, nil
}

func (s *Store) SaveJournal(_ context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to save journal"); err != nil {
		return err
	}
	if _, exists := s.journals[journal.JournalID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("journal %s already exists", journal.JournalID))
	}
	if err := s.checkAccounts(transactions, balanceChanges); err != nil {
		return err
	}

	journal.Transactions = nil
	s.journals[journal.JournalID] = journal
	s.insertTransactions(journal, transactions)
	s.applyBalanceChanges(balanceChanges)
	return nil
}

func (s *Store) ReplaceJournalTransactions(_ context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to update journal"); err != nil {
		return err
	}
	existing, ok := s.journals[journal.JournalID]
	if !ok || existing.IsDeleted() {
		return apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", journal.JournalID))
	}
	if err := repositories.CheckJournalMutable(existing); err != nil {
		return err
	}
	if err := s.checkAccounts(transactions, balanceChanges); err != nil {
		return err
	}

	s.tombstoneJournalLines(journal.JournalID, at)
	existing.JournalDate = journal.JournalDate
	existing.Description = journal.Description
	existing.TotalAmount = journal.TotalAmount
	existing.TransactionCount = journal.TransactionCount
	existing.LastUpdatedAt = journal.LastUpdatedAt
	existing.LastUpdatedBy = journal.LastUpdatedBy
	s.journals[journal.JournalID] = existing
	s.insertTransactions(journal, transactions)
	s.applyBalanceChanges(balanceChanges)
	return nil
}

func (s *Store) SoftDeleteJournal(_ context.Context, journalID string, userID string, at time.Time, balanceChanges map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to delete journal"); err != nil {
		return err
	}
	j, ok := s.journals[journalID]
	if !ok || j.IsDeleted() {
		return apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", journalID))
	}
	if err := repositories.CheckJournalMutable(j); err != nil {
		return err
	}
	if err := s.checkAccounts(nil, balanceChanges); err != nil {
		return err
	}

	j.MarkDeleted(at)
	j.LastUpdatedAt = at
	j.LastUpdatedBy = userID
	s.journals[journalID] = j
	s.tombstoneJournalLines(journalID, at)
	s.applyBalanceChanges(balanceChanges)
	return nil
}

func (s *Store) SaveReversal(_ context.Context, originalJournalID string, reversal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to save reversal"); err != nil {
		return err
	}
	original, ok := s.journals[originalJournalID]
	if !ok || original.IsDeleted() {
		return apperrors.NewNotFoundError(fmt.Sprintf("journal %s not found", originalJournalID))
	}
	if original.Status != domain.Posted {
		return apperrors.NewConflictError(fmt.Sprintf("journal %s is already %s", originalJournalID, original.Status))
	}
	if err := s.checkAccounts(transactions, balanceChanges); err != nil {
		return err
	}

	original.Status = domain.Reversed
	original.ReversingJournalID = &reversal.JournalID
	original.LastUpdatedAt = reversal.CreatedAt
	original.LastUpdatedBy = reversal.CreatedBy
	s.journals[originalJournalID] = original

	reversal.Transactions = nil
	s.journals[reversal.JournalID] = reversal
	s.insertTransactions(reversal, transactions)
	s.applyBalanceChanges(balanceChanges)
	return nil
}

// --- transactions ---

func (s *Store) FindTransactionsByJournalID(_ context.Context, journalID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var txns []domain.Transaction
	for _, txn := range s.transactions {
		if txn.JournalID == journalID && !txn.IsDeleted() {
			txns = append(txns, s.joined(txn))
		}
	}
	slices.SortFunc(txns, func(a, b domain.Transaction) int { return a.LineNo - b.LineNo })
	return txns, nil
}

func (s *Store) ListTransactions(_ context.Context, filter repositories.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransactions(filter), nil
}

func (s *Store) FindLatestRunningBalance(_ context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	filter := repositories.BalanceFilter(accountID)
	filter.To = &asOf
	txns := s.listTransactions(filter)
	if len(txns) == 0 {
		return decimal.Zero, nil
	}
	return txns[len(txns)-1].RunningBalance, nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, transactionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to delete transaction"); err != nil {
		return err
	}
	txn, ok := s.transactions[transactionID]
	if !ok || txn.IsDeleted() {
		return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found", transactionID))
	}
	txn.MarkDeleted(at)
	s.transactions[transactionID] = txn
	return nil
}

func (s *Store) UpdateRunningBalances(_ context.Context, accountID string, updates map[string]decimal.Decimal, snapshot *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable("failed to update running balances"); err != nil {
		return err
	}
	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", accountID))
	}
	for id := range updates {
		txn, ok := s.transactions[id]
		if !ok || txn.AccountID != accountID {
			return apperrors.NewNotFoundError(fmt.Sprintf("transaction %s not found for account %s", id, accountID))
		}
	}

	for id, value := range updates {
		txn := s.transactions[id]
		txn.RunningBalance = value
		s.transactions[id] = txn
		s.runningBalanceWrites++
	}
	if snapshot != nil {
		acc.Balance = *snapshot
		s.accounts[accountID] = acc
	}
	return nil
}

// --- helpers, callers hold the lock ---

func (s *Store) listTransactions(filter repositories.TransactionFilter) []domain.Transaction {
	var txns []domain.Transaction
	for _, txn := range s.transactions {
		if filter.AccountID != "" && txn.AccountID != filter.AccountID {
			continue
		}
		if filter.JournalID != "" && txn.JournalID != filter.JournalID {
			continue
		}
		j, ok := s.journals[txn.JournalID]
		if !ok {
			continue
		}
		if !filter.IncludeDeleted && (txn.IsDeleted() || j.IsDeleted()) {
			continue
		}
		if !filter.MatchesStatus(j.Status) || !filter.MatchesDate(j.JournalDate) {
			continue
		}
		txns = append(txns, s.joined(txn))
	}
	slices.SortFunc(txns, domain.CompareTransactions)
	if filter.Limit > 0 && len(txns) > filter.Limit {
		txns = txns[:filter.Limit]
	}
	return txns
}

func (s *Store) joined(txn domain.Transaction) domain.Transaction {
	if j, ok := s.journals[txn.JournalID]; ok {
		txn.JournalDate = j.JournalDate
		txn.JournalStatus = j.Status
	}
	return txn
}

func (s *Store) checkAccounts(transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	for _, txn := range transactions {
		if acc, ok := s.accounts[txn.AccountID]; !ok || acc.IsDeleted() {
			return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", txn.AccountID))
		}
	}
	for id := range balanceChanges {
		if _, ok := s.accounts[id]; !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", id))
		}
	}
	return nil
}

func (s *Store) insertTransactions(journal domain.Journal, transactions []domain.Transaction) {
	for _, txn := range transactions {
		txn.JournalID = journal.JournalID
		s.transactions[txn.TransactionID] = txn
	}
}

func (s *Store) tombstoneJournalLines(journalID string, at time.Time) {
	for id, txn := range s.transactions {
		if txn.JournalID == journalID && !txn.IsDeleted() {
			txn.MarkDeleted(at)
			s.transactions[id] = txn
		}
	}
}

func (s *Store) applyBalanceChanges(balanceChanges map[string]decimal.Decimal) {
	for id, delta := range balanceChanges {
		acc := s.accounts[id]
		acc.Balance = acc.Balance.Add(delta)
		s.accounts[id] = acc
	}
}
