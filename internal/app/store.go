// Package app holds the bootstrap shared by the server and scheduler binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/config"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository"
	"github.com/naimprince010-ship-it/isp-billing/internal/repository/memory"
)

// OpenStore returns the configured Store and a func releasing its resources
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on exit")
		return memory.NewStore(cfg.Business.TxTimeout), func() {}, nil
	}

	isolation, err := cfg.IsolationLevel()
	if err != nil {
		return nil, nil, err
	}

	db, err := initDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("connected to postgres", zap.String("isolation", isolation.String()))
	return repository.NewPostgresStore(db, isolation, cfg.Business.TxTimeout), func() { _ = db.Close() }, nil
}

func initDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}
