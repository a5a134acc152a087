package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver
)

// OpenSQLite opens a SQLite database. A single connection serializes
// writers, which SQLite requires anyway.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, func(), error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close sqlite database", "error", err)
		}
	}
	return sqlDB, cleanup, nil
}
