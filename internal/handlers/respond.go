package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// userIDHeader names the acting user recorded in audit fields. Authentication is
// handled in front of this service.
const userIDHeader = "X-User-ID"

const defaultUserID = "system"

func requestUserID(c *gin.Context) string {
	if id := c.GetHeader(userIDHeader); id != "" {
		return id
	}
	return defaultUserID
}

// respondError maps an error kind to its status. Client errors carry the error
// text; server errors only carry fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": fallback})
		return
	}

	logger.Warn(fallback, slog.String("error", err.Error()), slog.Int("status", status))
	body := gin.H{"error": err.Error()}
	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		body["problems"] = vErr.Problems
	}
	c.JSON(status, body)
}

// endOfDay makes a date-only upper bound inclusive of the whole day.
func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}
