package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
)

// auditService writes audit events as structured log records. The ledger never
// reads them back.
type auditService struct {
	BaseService
	logger *slog.Logger
}

// NewAuditService creates an AuditSvc logging to logger, or to the request logger
// when logger is nil.
func NewAuditService(logger *slog.Logger) portssvc.AuditSvc {
	return &auditService{logger: logger}
}

func (s *auditService) Record(ctx context.Context, event domain.AuditEvent) {
	logger := s.logger
	if logger == nil {
		logger = s.GetLogger(ctx)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("entity_type", string(event.EntityType)),
		slog.String("entity_id", event.EntityID),
		slog.String("action", string(event.Action)),
		slog.Time("at", event.At),
		slog.Any("before", event.Before),
		slog.Any("after", event.After),
	)
}

// noopNotifier drops change notifications when no observer is wired.
type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.ChangeSet) {}

// noopAudit drops audit events when no audit sink is wired.
type noopAudit struct{}

func (noopAudit) Record(context.Context, domain.AuditEvent) {}
