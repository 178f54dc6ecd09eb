package scoring

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veritax-advisory/taxhealth-cli/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// advisoryLockID guards concurrent migration runs across deploys.
const advisoryLockID = 7201103

// Migrate runs all pending SQL migrations in lexicographic order. It
// creates the tax_health schema and its tracking table if needed, then
// applies any .sql files not yet recorded.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "scoring.migrate"))

	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		return eris.Wrap(err, "scoring: acquire migration advisory lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			log.Warn("scoring: failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if err := ensureMigrationTable(ctx, pool); err != nil {
		return err
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "scoring: read migration dir")
	}

	// Lexicographic = numeric order with zero-padded names.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "scoring: read migration %s", name)
		}

		log.Info("applying migration", zap.String("file", name))

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "scoring: apply migration %s", name)
		}

		if _, err := pool.Exec(ctx,
			"INSERT INTO tax_health.schema_migrations (filename, applied_at) VALUES ($1, now())",
			name,
		); err != nil {
			return eris.Wrapf(err, "scoring: record migration %s", name)
		}

		log.Info("migration applied", zap.String("file", name))
	}

	return nil
}

func ensureMigrationTable(ctx context.Context, pool db.Pool) error {
	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS tax_health"); err != nil {
		return eris.Wrap(err, "scoring: create schema")
	}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tax_health.schema_migrations (
			filename   text PRIMARY KEY,
			applied_at timestamptz NOT NULL DEFAULT now()
		)`); err != nil {
		return eris.Wrap(err, "scoring: create migration table")
	}
	return nil
}

func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM tax_health.schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "scoring: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "scoring: scan migration row")
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "scoring: iterate migrations")
	}
	return applied, nil
}
