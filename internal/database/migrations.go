package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/mediacatalog/internal/logging"
)

// Migration is one versioned, forward-only schema change (§4.1, §6).
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// getMigrations returns every known migration in ascending version order.
// A freshly created database is stamped as having all of these applied
// (see stampAllMigrationsApplied); an existing database only runs the ones
// newer than its current schema_version row.
func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "baseline catalog schema",
			SQL:         canonicalSchemaSQL,
		},
	}
}

// createMigrationsTable creates the schema_version bookkeeping table if it
// does not already exist. The table name is part of the external interface
// (§6) and must not be renamed.
func (db *DB) createMigrationsTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}
	return nil
}

// stampAllMigrationsApplied records every known migration as already applied
// without re-running its SQL. Called only right after canonicalSchemaSQL has
// created the tables those migrations would otherwise have created (§4.1
// step 1: a brand-new database starts at the current version, not at zero).
func (db *DB) stampAllMigrationsApplied(ctx context.Context) error {
	for _, m := range getMigrations() {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_version (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			return fmt.Errorf("stamp migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// runPendingMigrations applies, in order, every migration whose version is
// greater than the current schema_version max, each inside its own
// transaction. It returns the count applied.
func (db *DB) runPendingMigrations(ctx context.Context) (int, error) {
	current, err := db.currentVersionInt(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range getMigrations() {
		if m.Version <= current {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return applied, fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		logging.Info().Int("version", m.Version).Str("description", m.Description).Msg("applied migration")
		applied++
	}
	return applied, nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration statement: %w\n%s", err, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, description) VALUES (?, ?)`,
		m.Version, m.Description); err != nil {
		return fmt.Errorf("record migration version: %w", err)
	}
	return tx.Commit()
}

func (db *DB) currentVersionInt(ctx context.Context) (int, error) {
	var v sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read current schema version: %w", err)
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// GetCurrentSchemaVersion is the exported form of currentVersionInt, used by
// cmd/catalogctl's migrate subcommand and integrity checks.
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	return db.currentVersionInt(ctx)
}

// MigrationRecord describes one applied migration row, for history display.
type MigrationRecord struct {
	Version     int
	Description string
	AppliedAt   string
}

// GetMigrationHistory lists every applied migration in ascending order.
func (db *DB) GetMigrationHistory(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT version, description, applied_at FROM schema_version ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query migration history: %w", err)
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		if err := rows.Scan(&r.Version, &r.Description, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
