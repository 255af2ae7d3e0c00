package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/SscSPs/mma_ledger/internal/adapters/observe"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/core/services"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/memory"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/mma_ledger/internal/repositories/database/sqlite"
	"github.com/SscSPs/mma_ledger/pkg/database"
)

// shutdownTimeout bounds the graceful stop of the server and the rebuild queue.
const shutdownTimeout = 30 * time.Second

// app is everything a command needs: the store and the services over it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    portsrepo.LedgerStore
	hub      *observe.Hub
	services *portssvc.ServiceContainer
}

func newLogger(level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the configured LedgerStore, migrating its schema first.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.LedgerStore, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if cfg.MigrationsPath != "" {
			logger.Info("Running database migrations...", slog.String("path", cfg.MigrationsPath))
			if err := database.MigratePostgres(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
				return nil, err
			}
		}
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection pool established.")
		return pgsql.NewLedgerStore(pool), nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := sqlite.New(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("SQLite database opened.", slog.String("path", cfg.SQLitePath))
		return store, nil

	case config.StoreMemory:
		logger.Warn("Using the in-memory store; data is lost on exit.")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// newApp loads configuration and wires the store, the change hub and the services.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger store", slog.String("error", err.Error()))
		return nil, err
	}

	hub := observe.NewHub(logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		hub:      hub,
		services: services.NewServiceContainer(cfg, store, hub, logger),
	}, nil
}

// close drains the rebuild queue, ends change subscriptions and releases the store.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.services.Rebuild.Shutdown(ctx); err != nil {
		a.logger.Error("Rebuild queue did not drain", slog.String("error", err.Error()))
	}
	a.hub.Close()
	a.store.Close()
}
