package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// flushTimeout bounds how long a flush request waits for the queue to drain.
const flushTimeout = 30 * time.Second

// integrityHandler exposes the strong-consistency checkpoints: full verification
// with repair, and draining the rebuild queue.
type integrityHandler struct {
	integrityService portssvc.IntegritySvc
	rebuildQueue     portssvc.RebuildQueueSvc
}

// RegisterIntegrityRoutes registers the integrity and rebuild routes.
func RegisterIntegrityRoutes(rg *gin.RouterGroup, integrityService portssvc.IntegritySvc, rebuildQueue portssvc.RebuildQueueSvc) {
	h := &integrityHandler{integrityService: integrityService, rebuildQueue: rebuildQueue}

	rg.POST("/integrity/check", h.runCheck)

	rebuild := rg.Group("/rebuild")
	{
		rebuild.GET("/status", h.queueStatus)
		rebuild.POST("/flush", h.flush)
		rebuild.POST("/accounts/:accountID", h.rebuildAccount)
	}
}

func (h *integrityHandler) runCheck(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	summary := h.integrityService.RunStartupCheck(ctx)
	unbalanced, err := h.integrityService.VerifyJournalBalances(ctx)
	if err != nil {
		respondError(c, logger, err, "Failed to verify journal balances")
		return
	}

	logger.Info("Integrity check completed",
		slog.Int("accounts_checked", summary.AccountsChecked),
		slog.Int("discrepancies", summary.DiscrepanciesFound),
		slog.Int("unbalanced_journals", len(unbalanced)))
	c.JSON(http.StatusOK, dto.IntegrityCheckResponse{Summary: summary, UnbalancedJournals: unbalanced})
}

func (h *integrityHandler) queueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pending":  h.rebuildQueue.Pending(),
		"inFlight": h.rebuildQueue.InFlight(),
	})
}

func (h *integrityHandler) flush(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	ctx, cancel := context.WithTimeout(c.Request.Context(), flushTimeout)
	defer cancel()

	if err := h.rebuildQueue.Flush(ctx); err != nil {
		logger.Warn("Rebuild queue flush did not complete", slog.String("error", err.Error()))
		c.JSON(http.StatusGatewayTimeout, dto.FlushResponse{Flushed: false, Pending: len(h.rebuildQueue.Pending())})
		return
	}
	c.JSON(http.StatusOK, dto.FlushResponse{Flushed: true})
}

func (h *integrityHandler) rebuildAccount(c *gin.Context) {
	accountID := c.Param("accountID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("account_id", accountID))

	result, err := h.rebuildQueue.RebuildNow(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to rebuild running balances")
		return
	}

	logger.Info("Running balances rebuilt", slog.Int("written", result.Written))
	c.JSON(http.StatusOK, result)
}
