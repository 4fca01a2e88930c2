package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// RunMigrations applies every *.up.sql file at the root of migrations that is
// not yet recorded in schema_migrations, in filename order. Each file runs in
// its own transaction. Connection failures are retried; SQL errors are not.
func RunMigrations(ctx context.Context, pool DBTX, migrations fs.FS, logger *slog.Logger) error {
	return runMigrations(ctx, pool, migrations, logger, defaultStartupRetry)
}

func runMigrations(ctx context.Context, pool DBTX, migrations fs.FS, logger *slog.Logger, retry startupRetry) error {
	return retry.do(ctx, logger, "run migrations", isConnectionError, func(ctx context.Context) error {
		return migrateOnce(ctx, pool, migrations, logger)
	})
}

func migrateOnce(ctx context.Context, pool DBTX, migrations fs.FS, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	// fs.ReadDir returns entries sorted by filename.
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, entry := range entries {
		version := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(version, ".up.sql") {
			continue
		}

		var applied bool
		if err := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			logger.Debug("migration already applied", slog.String("version", version))
			continue
		}

		body, err := fs.ReadFile(migrations, version)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		if err := applyMigration(ctx, pool, version, string(body)); err != nil {
			return err
		}
		logger.Info("migration applied", slog.String("version", version))
	}

	return nil
}

func applyMigration(ctx context.Context, pool DBTX, version, body string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx for migration %s: %w", version, err)
	}

	if _, err := tx.Exec(ctx, body); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("execute migration %s: %w", version, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("record migration %s: %w", version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
