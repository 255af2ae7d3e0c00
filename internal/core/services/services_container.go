package services

import (
	"log/slog"

	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// notifier may be nil when nothing observes changes.
func NewServiceContainer(cfg *config.Config, store portsrepo.LedgerStore, notifier portssvc.ChangeNotifier, logger *slog.Logger) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Currency = NewCurrencyService(cfg.PrecisionOverrides, cfg.ExchangeRates)
	container.Balance = NewBalanceService(store, container.Currency)
	container.Rebuild = NewRebuildQueue(container.Balance, cfg.RebuildConcurrency)
	container.Integrity = NewIntegrityService(store, container.Currency, container.Rebuild, cfg.AccountCheckTimeout)

	audit := NewAuditService(logger.With(slog.String("component", "audit")))
	journalOptions := []JournalServiceOption{WithAuditService(audit)}
	if notifier != nil {
		journalOptions = append(journalOptions, WithChangeNotifier(notifier))
	}
	container.Journal = NewJournalService(store, container.Currency, container.Rebuild, journalOptions...)
	container.Account = NewAccountService(store, container.Currency, container.Journal, WithAccountAudit(audit))

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade    = (*accountService)(nil)
	_ portssvc.JournalSvcFacade    = (*journalService)(nil)
	_ portssvc.RebuildQueueSvc     = (*RebuildQueue)(nil)
	_ portssvc.BalanceRebuilderSvc = (*balanceService)(nil)
	_ portssvc.IntegritySvc        = (*integrityService)(nil)
	_ portssvc.AuditSvc            = (*auditService)(nil)
)
