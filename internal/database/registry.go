package database

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/tomtom215/mediacatalog/internal/config"
)

// registry models the "process-wide singleton keyed by DB path" design note
// (§9) as an explicit map of *DB values guarded by a mutex, rather than
// hidden global state: Open always goes through here, and Shutdown is the
// only way to remove an entry.
var registry = struct {
	mu      sync.Mutex
	handles map[string]*DB
}{handles: make(map[string]*DB)}

// Open returns the process-wide handle for cfg.Path, opening it if this is
// the first call for that normalized path. Repeated opens of the same path
// return the same *DB (§4.1 "repeated opens ... return the same handle").
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	key := normalizePath(cfg.Path)

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if existing, ok := registry.handles[key]; ok {
		return existing, nil
	}

	db, err := New(cfg)
	if err != nil {
		return nil, err
	}
	registry.handles[key] = db
	return db, nil
}

// Shutdown closes and removes the handle for path, if one is open. Safe to
// call during graceful shutdown (§5) even if no handle was ever opened.
func Shutdown(path string) error {
	key := normalizePath(path)

	registry.mu.Lock()
	db, ok := registry.handles[key]
	delete(registry.handles, key)
	registry.mu.Unlock()

	if !ok {
		return nil
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("close database %s: %w", path, err)
	}
	return nil
}

func normalizePath(path string) string {
	if path == ":memory:" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(abs)
}
