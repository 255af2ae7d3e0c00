package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// journalHandler handles HTTP requests related to journals.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

// RegisterJournalRoutes registers routes related to journals.
func RegisterJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade) {
	h := &journalHandler{journalService: journalService}

	journals := rg.Group("/journals")
	{
		journals.POST("", h.createJournal)
		journals.GET("/:journalID", h.getJournal)
		journals.PUT("/:journalID", h.updateJournal)
		journals.DELETE("/:journalID", h.deleteJournal)
		journals.POST("/:journalID/reverse", h.reverseJournal)
	}
}

func (h *journalHandler) createJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateJournal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	req.UserID = requestUserID(c)
	logger = logger.With(slog.String("creator_user_id", req.UserID))

	journal, err := h.journalService.CreateJournalWithTransactions(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err, "Failed to create journal")
		return
	}

	logger.Info("Journal created successfully", slog.String("journal_id", journal.JournalID))
	c.JSON(http.StatusCreated, dto.ToJournalResponse(journal))
}

func (h *journalHandler) getJournal(c *gin.Context) {
	journalID := c.Param("journalID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", journalID))

	journal, err := h.journalService.GetJournal(c.Request.Context(), journalID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve journal")
		return
	}

	logger.Debug("Journal retrieved successfully")
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

func (h *journalHandler) updateJournal(c *gin.Context) {
	journalID := c.Param("journalID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", journalID))

	var patch dto.JournalPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		logger.Warn("Failed to bind JSON for UpdateJournal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	patch.UserID = requestUserID(c)

	journal, err := h.journalService.UpdateJournalWithTransactions(c.Request.Context(), journalID, patch)
	if err != nil {
		respondError(c, logger, err, "Failed to update journal")
		return
	}

	logger.Info("Journal updated successfully")
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

func (h *journalHandler) deleteJournal(c *gin.Context) {
	journalID := c.Param("journalID")
	userID := requestUserID(c)
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(
		slog.String("journal_id", journalID), slog.String("deleter_user_id", userID))

	if err := h.journalService.DeleteJournal(c.Request.Context(), journalID, userID); err != nil {
		respondError(c, logger, err, "Failed to delete journal")
		return
	}

	logger.Info("Journal deleted successfully")
	c.Status(http.StatusNoContent)
}

func (h *journalHandler) reverseJournal(c *gin.Context) {
	journalID := c.Param("journalID")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", journalID))

	var req dto.ReverseJournalRequest
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ReverseJournal", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	req.UserID = requestUserID(c)

	reversal, err := h.journalService.CreateReversalJournal(c.Request.Context(), journalID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to reverse journal")
		return
	}

	logger.Info("Journal reversed successfully", slog.String("reversal_journal_id", reversal.JournalID))
	c.JSON(http.StatusCreated, dto.ToJournalResponse(reversal))
}
