package main

import (
	"context"
	"fmt"
	"log/slog"

	"portfolio-site/internal/auth"
	"portfolio-site/internal/config"
	"portfolio-site/internal/database"
	"portfolio-site/internal/projects"
	"portfolio-site/internal/store"
)

// appStore is satisfied by both store backends.
type appStore interface {
	projects.Store
	auth.UserStore
}

// openStore connects to PostgreSQL when DATABASE_URL is set and falls back
// to the SQLite file otherwise. The returned func releases the connection.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (appStore, func(), error) {
	if cfg.UsesPostgres() {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("using postgres store")
		return store.NewPostgres(pool), pool.Close, nil
	}

	db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	logger.Info("using sqlite store", "path", cfg.SQLitePath)
	return store.NewSQLite(db), func() { _ = db.Close() }, nil
}
