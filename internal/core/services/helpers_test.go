package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/core/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time { return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func line(accountID, amount string, txnType domain.TransactionType) dto.LineInput {
	return dto.LineInput{AccountID: accountID, Amount: dec(amount), Type: txnType}
}

// saveAccount stores an account directly, bypassing the account service.
func saveAccount(t *testing.T, store *memory.Store, id string, accountType domain.AccountType, currency string) {
	t.Helper()
	require.NoError(t, store.SaveAccount(context.Background(), domain.Account{
		AccountID:    id,
		Name:         id,
		AccountType:  accountType,
		CurrencyCode: currency,
		AuditFields:  domain.AuditFields{CreatedAt: day(1)},
	}))
}

func newCurrencyService() portssvc.CurrencySvc {
	return services.NewCurrencyService(nil, map[string]decimal.Decimal{"EUR/USD": dec("1.10")})
}

// --- Mock RebuildQueue ---
type MockRebuildQueue struct {
	mock.Mock
}

var _ portssvc.RebuildQueueSvc = (*MockRebuildQueue)(nil)

func (m *MockRebuildQueue) Enqueue(ctx context.Context, accountID string, fromDate time.Time) {
	m.Called(ctx, accountID, fromDate)
}

func (m *MockRebuildQueue) EnqueueMany(ctx context.Context, accountIDs []string, fromDate time.Time) {
	m.Called(ctx, accountIDs, fromDate)
}

func (m *MockRebuildQueue) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRebuildQueue) RebuildNow(ctx context.Context, accountID string) (*domain.RebuildResult, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RebuildResult), args.Error(1)
}

func (m *MockRebuildQueue) Pending() map[string]time.Time {
	args := m.Called()
	return args.Get(0).(map[string]time.Time)
}

func (m *MockRebuildQueue) InFlight() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockRebuildQueue) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recorder collects audit events and change sets.
type recorder struct {
	mu      sync.Mutex
	events  []domain.AuditEvent
	changes []domain.ChangeSet
}

func (r *recorder) Record(_ context.Context, event domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Notify(_ context.Context, changes domain.ChangeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, changes)
}

func (r *recorder) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]domain.AuditAction, len(r.events))
	for i, e := range r.events {
		actions[i] = e.Action
	}
	return actions
}

// ledger wires real services over a memory store, as the server does.
type ledger struct {
	store     *memory.Store
	currency  portssvc.CurrencySvc
	balance   portssvc.BalanceRebuilderSvc
	queue     *services.RebuildQueue
	journals  portssvc.JournalSvcFacade
	accounts  portssvc.AccountSvcFacade
	integrity portssvc.IntegritySvc
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	store := memory.NewStore()
	currency := newCurrencyService()
	balance := services.NewBalanceService(store, currency)
	queue := services.NewRebuildQueue(balance, 4)
	journals := services.NewJournalService(store, currency, queue)
	l := &ledger{
		store:     store,
		currency:  currency,
		balance:   balance,
		queue:     queue,
		journals:  journals,
		accounts:  services.NewAccountService(store, currency, journals),
		integrity: services.NewIntegrityService(store, currency, queue, time.Second),
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.Shutdown(ctx)
	})
	return l
}

func (l *ledger) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.queue.Flush(ctx))
}

func (l *ledger) balanceOf(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	acc, err := l.store.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}
