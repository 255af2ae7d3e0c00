package handlers

import (
	"context"
	"net/http"

	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// feed may be nil, in which case no change feed is exposed.
func RegisterRoutes(r *gin.Engine, services *portssvc.ServiceContainer, store Pinger, feed ChangeFeed) {
	r.GET("/health", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"rebuildsPending": len(services.Rebuild.Pending()),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupAPIV1Routes(r, services, feed)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(r *gin.Engine, services *portssvc.ServiceContainer, feed ChangeFeed) {
	v1 := r.Group("/api/v1")

	RegisterAccountRoutes(v1, services.Account, services.Journal, services.Integrity)
	RegisterJournalRoutes(v1, services.Journal)
	RegisterIntegrityRoutes(v1, services.Integrity, services.Rebuild)
	if feed != nil {
		RegisterChangeRoutes(v1, feed)
	}
}
