// Package repositories selects the storage backend.
package repositories

import (
	"context"
	"log/slog"

	portsrepo "github.com/SscSPs/fleet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fleet_ledger/internal/platform/config"
	"github.com/SscSPs/fleet_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/fleet_ledger/internal/repositories/memory"
	"github.com/SscSPs/fleet_ledger/pkg/database"
)

// Open builds the repositories for the configured driver. Postgres stores are
// migrated before use. The returned close function releases the connections.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using the in-memory store; data is lost on restart")
		repos, _ := memory.NewRepositoryProvider()
		return repos, func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, logger, database.PoolOptions{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.StoreTimeout,
		Ping:           cfg.EnableDBCheck,
	})
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}

	if err := database.RunMigrations(logger, cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		database.ClosePgxPool(logger, dbPool)
		return portsrepo.RepositoryProvider{}, nil, err
	}
	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(logger, dbPool) }, nil
}
