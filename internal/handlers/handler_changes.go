package handlers

import (
	"net/http"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ChangeFeed is the subscription side of the change hub.
type ChangeFeed interface {
	Subscribe(buffer int) (<-chan domain.ChangeSet, func())
}

// RegisterChangeRoutes exposes the change feed as server-sent events.
func RegisterChangeRoutes(rg *gin.RouterGroup, feed ChangeFeed) {
	rg.GET("/changes", func(c *gin.Context) {
		streamChanges(c, feed)
	})
}

func streamChanges(c *gin.Context, feed ChangeFeed) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	changes, cancel := feed.Subscribe(0)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	logger.Debug("Change feed subscriber connected")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Change feed subscriber disconnected")
			return
		case cs, ok := <-changes:
			if !ok {
				return
			}
			c.SSEvent("change", cs)
			c.Writer.Flush()
		}
	}
}
