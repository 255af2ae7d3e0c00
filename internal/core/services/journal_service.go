package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/platform/metrics"
	"github.com/SscSPs/mma_ledger/internal/utils/accounting"
	"github.com/SscSPs/mma_ledger/internal/utils/moneymath"
	"github.com/shopspring/decimal"
)

// journalService provides the atomic journal and transaction operations.
type journalService struct {
	BaseService
	store    portsrepo.LedgerStore
	currency portssvc.CurrencySvc
	queue    portssvc.RebuildQueueSvc
	audit    portssvc.AuditSvc
	notifier portssvc.ChangeNotifier
}

// JournalServiceOption is a functional option for configuring the journal service
type JournalServiceOption func(*journalService)

// WithAuditService sets where audit events are recorded.
func WithAuditService(audit portssvc.AuditSvc) JournalServiceOption {
	return func(s *journalService) {
		s.audit = audit
	}
}

// WithChangeNotifier sets the observer told about changed accounts and journals.
func WithChangeNotifier(notifier portssvc.ChangeNotifier) JournalServiceOption {
	return func(s *journalService) {
		s.notifier = notifier
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) JournalServiceOption {
	return func(s *journalService) {
		s.clock = clock
	}
}

// NewJournalService creates a new JournalService.
func NewJournalService(store portsrepo.LedgerStore, currency portssvc.CurrencySvc, queue portssvc.RebuildQueueSvc, options ...JournalServiceOption) portssvc.JournalSvcFacade {
	return newJournalService(store, currency, queue, options...)
}

func newJournalService(store portsrepo.LedgerStore, currency portssvc.CurrencySvc, queue portssvc.RebuildQueueSvc, options ...JournalServiceOption) *journalService {
	svc := &journalService{
		store:    store,
		currency: currency,
		queue:    queue,
		audit:    noopAudit{},
		notifier: noopNotifier{},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// preparedLines is a validated set of journal lines with exchange rates resolved.
type preparedLines struct {
	inputs           []dto.LineInput
	rates            []*decimal.Decimal
	accounts         map[string]domain.Account
	precisions       map[string]int32 // by account ID
	journalPrecision int32
	totalAmount      decimal.Decimal
}

// prepareLines validates lines against each other, their accounts and the journal
// currency. Every shape problem is collected into one ValidationError.
func (s *journalService) prepareLines(ctx context.Context, journalCurrency string, inputs []dto.LineInput) (*preparedLines, error) {
	journalPrecision, err := s.currency.Precision(ctx, journalCurrency)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported journal currency %q", journalCurrency))
		}
		return nil, fmt.Errorf("failed to resolve journal currency: %w", err)
	}

	calcLines := make([]accounting.Line, len(inputs))
	for i, in := range inputs {
		calcLines[i] = accounting.Line{AccountID: in.AccountID, Amount: in.Amount, Type: in.Type}
	}
	accountIDs := accounting.DistinctAccounts(calcLines)

	accounts, err := s.store.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range accountIDs {
		if _, ok := accounts[id]; !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("account %s not found", id))
		}
	}

	var problems []string
	if len(inputs) >= 2 && len(accountIDs) < 2 {
		problems = append(problems, "journal must reference at least two distinct accounts")
	}

	prepared := &preparedLines{
		inputs:           inputs,
		rates:            make([]*decimal.Decimal, len(inputs)),
		accounts:         accounts,
		precisions:       make(map[string]int32, len(accounts)),
		journalPrecision: journalPrecision,
	}
	for id, acc := range accounts {
		p, err := s.currency.Precision(ctx, acc.CurrencyCode)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve precision of account %s: %w", id, err)
		}
		prepared.precisions[id] = p
	}

	for i, in := range inputs {
		acc := accounts[in.AccountID]
		if !in.Amount.Equal(moneymath.RoundToPrecision(in.Amount, prepared.precisions[acc.AccountID])) {
			problems = append(problems, fmt.Sprintf("line %d amount %s has more than %d decimal places for %s",
				i+1, in.Amount, prepared.precisions[acc.AccountID], acc.CurrencyCode))
		}

		rate, problem := s.resolveRate(ctx, i, in, acc, journalCurrency)
		if problem != "" {
			problems = append(problems, problem)
		}
		prepared.rates[i] = rate
		calcLines[i].ExchangeRate = rate
	}

	problems = append(problems, accounting.Validate(calcLines, journalPrecision)...)
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError(problems...)
	}

	prepared.totalAmount = accounting.TotalDebits(calcLines, journalPrecision)
	return prepared, nil
}

// resolveRate returns the line's rate into the journal currency: nil for a line in
// the journal currency, the requested rate when given, otherwise a looked-up one.
func (s *journalService) resolveRate(ctx context.Context, i int, in dto.LineInput, acc domain.Account, journalCurrency string) (*decimal.Decimal, string) {
	if acc.CurrencyCode == journalCurrency {
		if in.ExchangeRate != nil && !in.ExchangeRate.Equal(decimal.NewFromInt(1)) {
			return nil, fmt.Sprintf("line %d has exchange rate %s but account %s is already in %s",
				i+1, in.ExchangeRate, acc.AccountID, journalCurrency)
		}
		return nil, ""
	}
	if in.ExchangeRate != nil {
		rate := *in.ExchangeRate
		return &rate, ""
	}
	found, err := s.currency.GetExchangeRate(ctx, acc.CurrencyCode, journalCurrency)
	if err != nil {
		return nil, fmt.Sprintf("line %d needs an exchange rate from %s to %s", i+1, acc.CurrencyCode, journalCurrency)
	}
	rate := found.Rate
	return &rate, ""
}

// buildTransactions creates the transaction rows of a journal from prepared lines.
func buildTransactions(journal domain.Journal, prepared *preparedLines, userID string, now time.Time) []domain.Transaction {
	txns := make([]domain.Transaction, len(prepared.inputs))
	for i, in := range prepared.inputs {
		txns[i] = domain.Transaction{
			TransactionID:   uuid.NewString(),
			JournalID:       journal.JournalID,
			AccountID:       in.AccountID,
			LineNo:          i + 1,
			Amount:          in.Amount,
			TransactionType: in.Type,
			CurrencyCode:    prepared.accounts[in.AccountID].CurrencyCode,
			TransactionDate: journal.JournalDate,
			ExchangeRate:    prepared.rates[i],
			Notes:           in.Notes,
			AuditFields:     newAuditFields(userID, now),
			JournalDate:     journal.JournalDate,
			JournalStatus:   journal.Status,
		}
	}
	return txns
}

func newAuditFields(userID string, now time.Time) domain.AuditFields {
	return domain.AuditFields{CreatedAt: now, CreatedBy: userID, LastUpdatedAt: now, LastUpdatedBy: userID}
}

// assignProvisionalBalances sets each line's running balance to the account's
// latest known running balance as of asOf plus the signed deltas of the preceding
// lines of this journal, and returns the per-account snapshot deltas. The queued
// rebuild later corrects every line dated after asOf.
func (s *journalService) assignProvisionalBalances(ctx context.Context, txns []domain.Transaction, accounts map[string]domain.Account, precisions map[string]int32, asOf time.Time) (map[string]decimal.Decimal, error) {
	running := make(map[string]decimal.Decimal)
	changes := make(map[string]decimal.Decimal)
	for i := range txns {
		acc := accounts[txns[i].AccountID]
		precision := precisions[acc.AccountID]

		base, seen := running[acc.AccountID]
		if !seen {
			latest, err := s.store.FindLatestRunningBalance(ctx, acc.AccountID, asOf)
			if err != nil {
				return nil, fmt.Errorf("failed to read latest running balance of account %s: %w", acc.AccountID, err)
			}
			base = latest
		}

		signed, err := accounting.SignedAmount(txns[i].Amount, txns[i].TransactionType, acc.AccountType)
		if err != nil {
			return nil, fmt.Errorf("internal error calculating balance changes: %w", err)
		}
		running[acc.AccountID] = moneymath.SafeAdd(base, signed, precision)
		txns[i].RunningBalance = running[acc.AccountID]
		changes[acc.AccountID] = moneymath.SafeAdd(changes[acc.AccountID], signed, precision)
	}
	return changes, nil
}

// reverseEffects returns the snapshot deltas that undo txns.
func (s *journalService) reverseEffects(ctx context.Context, txns []domain.Transaction, into map[string]decimal.Decimal) error {
	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.AccountID)
	}
	accounts, err := s.store.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, txn := range txns {
		acc, ok := accounts[txn.AccountID]
		if !ok {
			return fmt.Errorf("%w: account %s of transaction %s is missing", apperrors.ErrInternal, txn.AccountID, txn.TransactionID)
		}
		signed, err := accounting.SignedAmount(txn.Amount, txn.TransactionType, acc.AccountType)
		if err != nil {
			return fmt.Errorf("internal error calculating balance changes: %w", err)
		}
		into[txn.AccountID] = into[txn.AccountID].Sub(signed)
	}
	return nil
}

func accountIDsOf(txns ...[]domain.Transaction) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, set := range txns {
		for _, txn := range set {
			if _, ok := seen[txn.AccountID]; !ok {
				seen[txn.AccountID] = struct{}{}
				ids = append(ids, txn.AccountID)
			}
		}
	}
	return ids
}

func (s *journalService) afterWrite(ctx context.Context, action domain.AuditAction, journalIDs []string, accountIDs []string, fromDate time.Time, event domain.AuditEvent) {
	s.queue.EnqueueMany(ctx, accountIDs, fromDate)
	s.audit.Record(ctx, event)
	s.notifier.Notify(ctx, domain.ChangeSet{Action: action, AccountIDs: accountIDs, JournalIDs: journalIDs, At: event.At})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (s *journalService) CreateJournalWithTransactions(ctx context.Context, req dto.CreateJournalRequest) (journal *domain.Journal, err error) {
	defer func() { metrics.JournalOperations.WithLabelValues("create", outcome(err)).Inc() }()

	prepared, err := s.prepareLines(ctx, req.CurrencyCode, req.Lines)
	if err != nil {
		s.LogError(ctx, err, "Journal rejected", slog.String("currency", req.CurrencyCode), slog.Int("lines", len(req.Lines)))
		return nil, err
	}

	now := s.Now()
	newJournal := domain.Journal{
		JournalID:        uuid.NewString(),
		JournalDate:      req.Date.UTC(),
		Description:      req.Description,
		CurrencyCode:     req.CurrencyCode,
		Status:           domain.Posted,
		TotalAmount:      prepared.totalAmount,
		TransactionCount: len(req.Lines),
		AuditFields:      newAuditFields(req.UserID, now),
	}

	txns := buildTransactions(newJournal, prepared, req.UserID, now)
	changes, err := s.assignProvisionalBalances(ctx, txns, prepared.accounts, prepared.precisions, newJournal.JournalDate)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveJournal(ctx, newJournal, txns, changes); err != nil {
		s.LogError(ctx, err, "Failed to save journal", slog.String("journal_id", newJournal.JournalID))
		return nil, fmt.Errorf("failed to save journal: %w", err)
	}

	s.LogInfo(ctx, "Journal created",
		slog.String("journal_id", newJournal.JournalID),
		slog.String("total", moneymath.Format(newJournal.TotalAmount, prepared.journalPrecision)),
		slog.Int("lines", len(txns)))

	newJournal.Transactions = txns
	s.afterWrite(ctx, domain.ActionCreate, []string{newJournal.JournalID}, accountIDsOf(txns), newJournal.JournalDate,
		domain.AuditEvent{EntityType: domain.EntityJournal, EntityID: newJournal.JournalID, Action: domain.ActionCreate, After: newJournal, At: now})
	return &newJournal, nil
}

// findMutable loads an active journal and its lines, rejecting reversed journals
// and reversal journals.
func (s *journalService) findMutable(ctx context.Context, journalID string) (*domain.Journal, []domain.Transaction, error) {
	journal, err := s.store.FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find journal by ID %s: %w", journalID, err)
	}
	if err := portsrepo.CheckJournalMutable(*journal); err != nil {
		return nil, nil, err
	}
	txns, err := s.store.FindTransactionsByJournalID(ctx, journalID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve transactions for journal %s: %w", journalID, err)
	}
	return journal, txns, nil
}

func (s *journalService) UpdateJournalWithTransactions(ctx context.Context, journalID string, patch dto.JournalPatch) (journal *domain.Journal, err error) {
	defer func() { metrics.JournalOperations.WithLabelValues("update", outcome(err)).Inc() }()

	existing, oldTxns, err := s.findMutable(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		existing.Transactions = oldTxns
		return existing, nil
	}

	updated := *existing
	if patch.Date != nil {
		updated.JournalDate = patch.Date.UTC()
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}

	var inputs []dto.LineInput
	if patch.Lines != nil {
		inputs = *patch.Lines
	} else {
		inputs = make([]dto.LineInput, len(oldTxns))
		for i, txn := range oldTxns {
			inputs[i] = dto.LineInput{AccountID: txn.AccountID, Amount: txn.Amount, Type: txn.TransactionType, ExchangeRate: txn.ExchangeRate, Notes: txn.Notes}
		}
	}

	prepared, err := s.prepareLines(ctx, existing.CurrencyCode, inputs)
	if err != nil {
		s.LogError(ctx, err, "Journal update rejected", slog.String("journal_id", journalID))
		return nil, err
	}

	now := s.Now()
	updated.TotalAmount = prepared.totalAmount
	updated.TransactionCount = len(inputs)
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = patch.UserID

	newTxns := buildTransactions(updated, prepared, patch.UserID, now)
	changes, err := s.assignProvisionalBalances(ctx, newTxns, prepared.accounts, prepared.precisions, updated.JournalDate)
	if err != nil {
		return nil, err
	}
	if err := s.reverseEffects(ctx, oldTxns, changes); err != nil {
		return nil, err
	}

	if err := s.store.ReplaceJournalTransactions(ctx, updated, newTxns, changes, now); err != nil {
		s.LogError(ctx, err, "Failed to save journal update", slog.String("journal_id", journalID))
		return nil, fmt.Errorf("failed to save journal update: %w", err)
	}

	fromDate := existing.JournalDate
	if updated.JournalDate.Before(fromDate) {
		fromDate = updated.JournalDate
	}
	s.LogInfo(ctx, "Journal updated", slog.String("journal_id", journalID), slog.Int("lines", len(newTxns)))

	before := *existing
	before.Transactions = oldTxns
	updated.Transactions = newTxns
	s.afterWrite(ctx, domain.ActionUpdate, []string{journalID}, accountIDsOf(oldTxns, newTxns), fromDate,
		domain.AuditEvent{EntityType: domain.EntityJournal, EntityID: journalID, Action: domain.ActionUpdate, Before: before, After: updated, At: now})
	return &updated, nil
}

func (s *journalService) DeleteJournal(ctx context.Context, journalID string, userID string) (err error) {
	defer func() { metrics.JournalOperations.WithLabelValues("delete", outcome(err)).Inc() }()

	existing, txns, err := s.findMutable(ctx, journalID)
	if err != nil {
		return err
	}

	changes := make(map[string]decimal.Decimal)
	if err := s.reverseEffects(ctx, txns, changes); err != nil {
		return err
	}

	now := s.Now()
	if err := s.store.SoftDeleteJournal(ctx, journalID, userID, now, changes); err != nil {
		s.LogError(ctx, err, "Failed to delete journal", slog.String("journal_id", journalID))
		return fmt.Errorf("failed to delete journal: %w", err)
	}

	s.LogInfo(ctx, "Journal deleted", slog.String("journal_id", journalID), slog.Int("lines", len(txns)))
	existing.Transactions = txns
	s.afterWrite(ctx, domain.ActionDelete, []string{journalID}, accountIDsOf(txns), existing.JournalDate,
		domain.AuditEvent{EntityType: domain.EntityJournal, EntityID: journalID, Action: domain.ActionDelete, Before: *existing, At: now})
	return nil
}

func (s *journalService) CreateReversalJournal(ctx context.Context, journalID string, req dto.ReverseJournalRequest) (journal *domain.Journal, err error) {
	defer func() { metrics.JournalOperations.WithLabelValues("reverse", outcome(err)).Inc() }()

	original, err := s.store.FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve original journal: %w", err)
	}
	if original.Status != domain.Posted {
		return nil, apperrors.NewConflictError(fmt.Sprintf("journal %s is %s, expected POSTED", journalID, original.Status))
	}
	if original.IsReversal() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("journal %s is itself a reversal and cannot be reversed", journalID))
	}

	originalTxns, err := s.store.FindTransactionsByJournalID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve original transactions: %w", err)
	}

	inputs := make([]dto.LineInput, len(originalTxns))
	for i, txn := range originalTxns {
		inputs[i] = dto.LineInput{AccountID: txn.AccountID, Amount: txn.Amount, Type: txn.TransactionType.Opposite(), ExchangeRate: txn.ExchangeRate, Notes: txn.Notes}
	}
	prepared, err := s.prepareLines(ctx, original.CurrencyCode, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare reversal lines: %w", err)
	}

	now := s.Now()
	reversalDate := now
	if req.Date != nil {
		reversalDate = req.Date.UTC()
	}
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Reversal of Journal: %s", original.Description)
	}

	reversal := domain.Journal{
		JournalID:         uuid.NewString(),
		JournalDate:       reversalDate,
		Description:       description,
		CurrencyCode:      original.CurrencyCode,
		Status:            domain.Posted,
		OriginalJournalID: &original.JournalID,
		TotalAmount:       prepared.totalAmount,
		TransactionCount:  len(inputs),
		AuditFields:       newAuditFields(req.UserID, now),
	}

	txns := buildTransactions(reversal, prepared, req.UserID, now)
	changes, err := s.assignProvisionalBalances(ctx, txns, prepared.accounts, prepared.precisions, reversalDate)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveReversal(ctx, journalID, reversal, txns, changes); err != nil {
		s.LogError(ctx, err, "Failed to save reversing journal", slog.String("original_journal_id", journalID))
		return nil, fmt.Errorf("failed to save reversing journal: %w", err)
	}

	s.LogInfo(ctx, "Journal reversed",
		slog.String("original_journal_id", journalID),
		slog.String("reversing_journal_id", reversal.JournalID))

	fromDate := reversalDate
	if original.JournalDate.Before(fromDate) {
		fromDate = original.JournalDate
	}
	after := *original
	after.Status = domain.Reversed
	after.ReversingJournalID = &reversal.JournalID
	reversal.Transactions = txns
	s.afterWrite(ctx, domain.ActionReverse, []string{journalID, reversal.JournalID}, accountIDsOf(txns), fromDate,
		domain.AuditEvent{EntityType: domain.EntityJournal, EntityID: journalID, Action: domain.ActionReverse, Before: *original, After: after, At: now})
	return &reversal, nil
}

func (s *journalService) GetJournal(ctx context.Context, journalID string) (*domain.Journal, error) {
	journal, err := s.store.FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find journal by ID %s: %w", journalID, err)
	}
	txns, err := s.store.FindTransactionsByJournalID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transactions for journal %s: %w", journalID, err)
	}
	journal.Transactions = txns
	return journal, nil
}

func (s *journalService) ListTransactions(ctx context.Context, filter portsrepo.TransactionFilter) ([]domain.Transaction, error) {
	txns, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}
	return txns, nil
}
