package database

import (
	"container/list"
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/tomtom215/mediacatalog/internal/logging"
)

// Conn is a scoped connection handed out by connectionPool.Acquire. Callers
// must call Release when done; Release returns the connection to the pool
// rather than closing it, unless the pool is already at capacity (LRU
// eviction then closes the oldest idle connection instead).
type Conn struct {
	raw      *sql.Conn
	readOnly bool
	pool     *connectionPool
	elem     *list.Element // set once back in the idle list
}

// ExecContext proxies to the underlying *sql.Conn.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.raw.ExecContext(ctx, query, args...)
}

// QueryContext proxies to the underlying *sql.Conn.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.raw.QueryContext(ctx, query, args...)
}

// QueryRowContext proxies to the underlying *sql.Conn.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.raw.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction on this scoped connection. Every write goes
// through a transaction (§5 "writes are short and always wrapped").
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.raw.BeginTx(ctx, opts)
}

// Release returns the connection to its pool.
func (c *Conn) Release() {
	c.pool.release(c)
}

// connectionPool models the per-thread connection pool with LRU eviction
// described in §4.1/§5. Because the underlying driver is single-writer
// (database/sql's own pool is capped to one physical connection, see
// database.go), this pool's job is bookkeeping and broken-connection
// replacement, not physical multiplexing.
type connectionPool struct {
	db       *DB
	capacity int

	mu   sync.Mutex
	idle *list.List // of *Conn, front = most recently released
}

func newConnectionPool(db *DB, capacity int) *connectionPool {
	if capacity <= 0 {
		capacity = 8
	}
	return &connectionPool{db: db, capacity: capacity, idle: list.New()}
}

// Acquire returns a scoped connection. It first tries to reuse an idle
// connection (verified with a trivial read); on failure, or when the idle
// list is empty, it opens a fresh one from the driver pool.
func (p *connectionPool) Acquire(ctx context.Context, readOnly bool) (*Conn, error) {
	p.mu.Lock()
	if e := p.idle.Front(); e != nil {
		p.idle.Remove(e)
		p.mu.Unlock()
		c := e.Value.(*Conn)
		if p.isHealthy(ctx, c) {
			c.readOnly = readOnly
			c.elem = nil
			return c, nil
		}
		_ = c.raw.Close()
	} else {
		p.mu.Unlock()
	}

	raw, err := p.db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Conn{raw: raw, readOnly: readOnly, pool: p}, nil
}

// isHealthy detects a broken pooled connection with a trivial read, per §4.1.
func (p *connectionPool) isHealthy(ctx context.Context, c *Conn) bool {
	var one int
	err := c.raw.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	if err != nil {
		logging.Warn().Err(err).Msg("pooled connection failed health check, discarding")
		return false
	}
	return true
}

func (p *connectionPool) release(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c.elem = p.idle.PushFront(c)
	for p.idle.Len() > p.capacity {
		back := p.idle.Back()
		if back == nil {
			break
		}
		p.idle.Remove(back)
		evicted := back.Value.(*Conn)
		_ = evicted.raw.Close()
	}
}

func (p *connectionPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for e := p.idle.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*Conn).raw.Close()
	}
	p.idle.Init()
}

// Connection yields a scoped connection with the pool's LRU/health-check
// discipline applied. This is the public entry point named in §4.1.
func (db *DB) Connection(ctx context.Context, readOnly bool) (*Conn, error) {
	return db.pool.Acquire(ctx, readOnly)
}
