package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// maxAccountDepth bounds parent-chain walks; a longer chain is treated as a cycle.
const maxAccountDepth = 64

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	store    portsrepo.LedgerStore
	currency portssvc.CurrencySvc
	journals portssvc.JournalWriterSvc
	audit    portssvc.AuditSvc
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithAccountAudit sets where account audit events are recorded.
func WithAccountAudit(audit portssvc.AuditSvc) AccountServiceOption {
	return func(s *accountService) {
		s.audit = audit
	}
}

// WithAccountClock overrides the time source, for tests.
func WithAccountClock(clock func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		s.clock = clock
	}
}

// NewAccountService creates an account service. journals posts opening balances.
func NewAccountService(store portsrepo.LedgerStore, currency portssvc.CurrencySvc, journals portssvc.JournalWriterSvc, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		store:    store,
		currency: currency,
		journals: journals,
		audit:    noopAudit{},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error) {
	var problems []string
	if strings.TrimSpace(req.Name) == "" {
		problems = append(problems, "account name is required")
	}
	if !req.AccountType.IsValid() {
		problems = append(problems, fmt.Sprintf("invalid account type '%s'", req.AccountType))
	}
	currency, err := s.currency.GetCurrency(ctx, req.CurrencyCode)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve currency: %w", err)
		}
		problems = append(problems, fmt.Sprintf("unsupported currency %q", req.CurrencyCode))
	}
	if req.OpeningBalance != nil && !req.OpeningBalance.IsZero() && req.OpeningEquityAccountID == nil {
		problems = append(problems, "an opening balance needs an equity account to balance against")
	}
	if req.OpeningBalance != nil && req.OpeningBalance.IsNegative() {
		problems = append(problems, "opening balance must be positive")
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError(problems...)
	}

	if req.ParentAccountID != nil {
		if err := s.checkParent(ctx, *req.ParentAccountID); err != nil {
			return nil, err
		}
	}

	var equity *domain.Account
	if req.OpeningBalance != nil && !req.OpeningBalance.IsZero() {
		equity, err = s.store.FindAccountByID(ctx, *req.OpeningEquityAccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to find opening balance account: %w", err)
		}
		if equity.AccountType != domain.Equity {
			return nil, apperrors.NewValidationError(fmt.Sprintf("opening balance account %s is %s, expected EQUITY", equity.AccountID, equity.AccountType))
		}
		if equity.CurrencyCode != currency.CurrencyCode {
			return nil, apperrors.NewValidationError(fmt.Sprintf("opening balance account %s is in %s, expected %s", equity.AccountID, equity.CurrencyCode, currency.CurrencyCode))
		}
	}

	now := s.Now()
	account := domain.Account{
		AccountID:       uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		AccountType:     req.AccountType,
		CurrencyCode:    currency.CurrencyCode,
		ParentAccountID: req.ParentAccountID,
		Description:     req.Description,
		AuditFields:     newAuditFields(req.UserID, now),
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("account_id", account.AccountID))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	s.LogInfo(ctx, "Account created",
		slog.String("account_id", account.AccountID),
		slog.String("account_type", string(account.AccountType)),
		slog.String("currency", account.CurrencyCode))
	s.audit.Record(ctx, domain.AuditEvent{EntityType: domain.EntityAccount, EntityID: account.AccountID, Action: domain.ActionCreate, After: account, At: now})

	if equity != nil {
		if err := s.postOpeningBalance(ctx, account, *equity, req); err != nil {
			// The account and its opening journal are separate store writes. This
			// compensates for a failed journal; a crash in between still leaves the
			// account without an opening balance.
			if delErr := s.store.SoftDeleteAccount(ctx, account.AccountID, req.UserID, s.Now()); delErr != nil {
				s.LogError(ctx, delErr, "Failed to roll back account after opening balance failure", slog.String("account_id", account.AccountID))
			}
			return nil, fmt.Errorf("failed to post opening balance: %w", err)
		}
		return s.GetAccount(ctx, account.AccountID)
	}
	return &account, nil
}

func (s *accountService) postOpeningBalance(ctx context.Context, account, equity domain.Account, req dto.CreateAccountRequest) error {
	side, err := account.AccountType.IncreaseSide()
	if err != nil {
		return err
	}
	date := s.Now()
	if req.OpeningBalanceDate != nil {
		date = *req.OpeningBalanceDate
	}
	_, err = s.journals.CreateJournalWithTransactions(ctx, dto.CreateJournalRequest{
		Date:         date,
		Description:  fmt.Sprintf("Opening balance: %s", account.Name),
		CurrencyCode: account.CurrencyCode,
		Lines: []dto.LineInput{
			{AccountID: account.AccountID, Amount: *req.OpeningBalance, Type: side},
			{AccountID: equity.AccountID, Amount: *req.OpeningBalance, Type: side.Opposite()},
		},
		UserID: req.UserID,
	})
	return err
}

// checkParent requires the parent to be active and its ancestor chain to end.
func (s *accountService) checkParent(ctx context.Context, parentID string) error {
	seen := make(map[string]struct{})
	id := parentID
	for depth := 0; ; depth++ {
		if _, loop := seen[id]; loop || depth > maxAccountDepth {
			return apperrors.NewValidationError(fmt.Sprintf("parent account %s is part of a cycle", parentID))
		}
		seen[id] = struct{}{}
		acc, err := s.store.FindAccountByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find parent account %s: %w", id, err)
		}
		if acc.ParentAccountID == nil {
			return nil
		}
		id = *acc.ParentAccountID
	}
}

func (s *accountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, includeDeleted bool) ([]domain.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, accountID string, userID string) error {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	active, err := s.store.ListTransactions(ctx, portsrepo.TransactionFilter{AccountID: accountID, Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to check transactions of account %s: %w", accountID, err)
	}
	if len(active) > 0 {
		return apperrors.NewConflictError(fmt.Sprintf("account %s still has active transactions", accountID))
	}

	accounts, err := s.store.ListAccounts(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, acc := range accounts {
		if acc.ParentAccountID != nil && *acc.ParentAccountID == accountID {
			return apperrors.NewConflictError(fmt.Sprintf("account %s is the parent of active account %s", accountID, acc.AccountID))
		}
	}

	now := s.Now()
	if err := s.store.SoftDeleteAccount(ctx, accountID, userID, now); err != nil {
		s.LogError(ctx, err, "Failed to delete account", slog.String("account_id", accountID))
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.LogInfo(ctx, "Account deleted", slog.String("account_id", accountID))
	s.audit.Record(ctx, domain.AuditEvent{EntityType: domain.EntityAccount, EntityID: accountID, Action: domain.ActionDelete, Before: *account, At: now})
	return nil
}
