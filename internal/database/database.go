// Package database owns the embedded catalog database file: connection
// pooling, schema initialization, migrations, and transactional helpers.
// Everything above the Storage Engine layer (§4.1) goes through *DB.
//
// The driver is modernc.org/sqlite (pure Go, no cgo) rather than the
// teacher's DuckDB, because this spec's contract is explicitly SQLite's:
// PRAGMA foreign_keys, COLLATE NOCASE tag comparisons, recursive CTEs over
// a row store, and a DELETE-vs-WAL journal-mode tradeoff that only makes
// sense for SQLite (§4.1, §9). See DESIGN.md.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tomtom215/mediacatalog/internal/config"
	"github.com/tomtom215/mediacatalog/internal/logging"
)

// DB wraps the catalog's SQLite connection pool and provides the
// transactional primitives every repository is built on.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
	path string // absolute, normalized path this handle was opened for

	pool *connectionPool

	mu sync.RWMutex

	created           bool // true if this New() call created the schema from scratch
	migrationsApplied int  // count of pending migrations run by this New() call
}

// Created reports whether this handle's New() call created the catalog
// schema from scratch rather than opening an existing database.
func (db *DB) Created() bool { return db.created }

// MigrationsApplied returns the count of pending migrations this handle's
// New() call ran against an existing database. Always 0 when Created is
// true, since a fresh database is stamped rather than migrated (§4.1).
func (db *DB) MigrationsApplied() int { return db.migrationsApplied }

// New opens (or initializes) the catalog database at cfg.Path. Callers
// should prefer Open, which deduplicates handles by path; New always
// creates a fresh *sql.DB and is exported mainly for tests that want an
// isolated in-memory handle.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	// DELETE journal mode, not WAL: WAL readers in this driver are not
	// guaranteed to observe another connection's freshly-created tables,
	// which produced the cross-thread visibility bugs the source project
	// hit historically (§4.1, §9). foreign_keys is mandatory per contract.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(DELETE)&_pragma=busy_timeout(%d)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1) // single-writer discipline (§5): one *sql.DB conn, pool manages scoped checkouts
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{
		conn: conn,
		cfg:  cfg,
		path: normalizePath(cfg.Path),
	}
	db.pool = newConnectionPool(db, cfg.PoolSize)

	if err := db.initialize(cfg.AutoInit); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return db, nil
}

// initialize runs the §4.1 initialization algorithm: create-from-scratch if
// no tables exist, else apply pending migrations in order, else no-op.
func (db *DB) initialize(autoInit bool) error {
	ctx, cancel := schemaContext()
	defer cancel()

	exists, err := db.tableExists(ctx, "photos")
	if err != nil {
		return err
	}

	if !exists {
		if !autoInit {
			return fmt.Errorf("%w: photos table missing and auto_init disabled", os.ErrNotExist)
		}
		if err := db.Script(ctx, canonicalSchemaSQL); err != nil {
			return fmt.Errorf("run canonical schema: %w", err)
		}
		if err := db.createMigrationsTable(ctx); err != nil {
			return err
		}
		// Record every known migration version as already applied so a
		// fresh database starts at the current schema version (§4.1 step 1).
		if err := db.stampAllMigrationsApplied(ctx); err != nil {
			return err
		}
		if ok, verr := db.tableExists(ctx, "photos"); verr != nil || !ok {
			return fmt.Errorf("post-init verification failed: table photos missing")
		}
		db.created = true
		logging.Info().Str("path", db.path).Msg("catalog schema created")
		return nil
	}

	if err := db.createMigrationsTable(ctx); err != nil {
		return err
	}
	applied, err := db.runPendingMigrations(ctx)
	if err != nil {
		return err
	}
	db.migrationsApplied = applied
	if applied > 0 {
		logging.Info().Int("count", applied).Msg("applied pending catalog migrations")
	}
	return nil
}

func (db *DB) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

// ValidateSchema returns false if any expected table is missing. Missing
// indexes are logged as a warning only, per §4.1.
func (db *DB) ValidateSchema(ctx context.Context) (bool, error) {
	for _, table := range expectedTables {
		ok, err := db.tableExists(ctx, table)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, idx := range expectedIndexes {
		var n int
		err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&n)
		if err != nil {
			return false, fmt.Errorf("check index %s: %w", idx, err)
		}
		if n == 0 {
			logging.Warn().Str("index", idx).Msg("expected index missing")
		}
	}
	return true, nil
}

// Version returns the latest applied schema_version version.
func (db *DB) Version(ctx context.Context) (string, error) {
	var v sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("read schema version: %w", err)
	}
	if !v.Valid {
		return "0", nil
	}
	return fmt.Sprintf("%d", v.Int64), nil
}

// Script executes a multi-statement DDL script inside one transaction.
func (db *DB) Script(ctx context.Context, sqlScript string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin script transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(sqlScript) {
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec statement: %w\n%s", err, stmt)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit script: %w", err)
	}
	return nil
}

// Close releases pooled connections and the underlying *sql.DB.
func (db *DB) Close() error {
	db.pool.closeAll()
	return db.conn.Close()
}

// Path returns the normalized path this handle was opened for.
func (db *DB) Path() string { return db.path }

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}
