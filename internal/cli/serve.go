package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/mma_ledger/internal/handlers"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP API",
	Long: `Start the HTTP API. Unless STARTUP_CHECK_ENABLED is false, every account
balance is verified in the background right after the server starts and
mismatches are repaired.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	port := a.cfg.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}

	router, err := newRouter(a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", port), slog.String("store", a.cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if a.cfg.StartupCheckEnabled {
		go runStartupCheck(ctx, a)
	}

	select {
	case err, ok := <-serverErr:
		if ok {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func newRouter(a *app) (*gin.Engine, error) {
	if a.cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	limiterInstance, err := middleware.NewRateLimiter(a.cfg.RateLimit)
	if err != nil {
		a.logger.Error("Invalid rate limit", slog.String("rate", a.cfg.RateLimit), slog.String("error", err.Error()))
		return nil, err
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-User-ID")
	if len(a.cfg.CORSOrigins) == 1 && a.cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = a.cfg.CORSOrigins
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(a.logger),
		gin.Recovery(),
		middleware.RequestMetrics(),
		cors.New(corsConfig),
		middleware.RateLimit(limiterInstance),
	)
	if err := r.SetTrustedProxies(nil); err != nil {
		a.logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		return nil, err
	}
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	handlers.RegisterRoutes(r, a.services, a.store, a.hub)
	return r, nil
}

// runStartupCheck verifies and repairs every account once. Failures are logged, never fatal.
func runStartupCheck(ctx context.Context, a *app) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StartupCheckTimeout)
	defer cancel()

	started := time.Now()
	summary := a.services.Integrity.RunStartupCheck(ctx)
	a.logger.Info("Startup integrity check finished",
		slog.Int("accounts_checked", summary.AccountsChecked),
		slog.Int("discrepancies", summary.DiscrepanciesFound),
		slog.Int("repairs_successful", summary.RepairsSuccessful),
		slog.Int("failed_accounts", len(summary.FailedAccounts)),
		slog.Duration("took", time.Since(started)),
	)
	if len(summary.StaleAccounts) > 0 {
		a.logger.Warn("Some balance caches could not be repaired", slog.Any("accounts", summary.StaleAccounts))
	}
}
