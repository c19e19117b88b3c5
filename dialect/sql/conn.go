// Package sql provides the connection boundary between the runtime and a
// database/sql driver: statement execution, transaction state, and query
// instrumentation.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/strata/dialect"
)

// Transaction state machine misuse.
var (
	// ErrTxStarted is returned when Begin is called while a transaction is
	// already open on the connection.
	ErrTxStarted = errors.New("dialect/sql: transaction already started")

	// ErrTxNotStarted is returned when Commit or Rollback is called with no
	// open transaction.
	ErrTxNotStarted = errors.New("dialect/sql: no transaction started")
)

// Conn owns a database handle and its dialect. It executes compiled
// statements and provides explicit transaction boundaries. A Conn carries at
// most one in-flight transaction and is not safe for concurrent use; open
// one Conn per thread of control.
type Conn struct {
	db     *sql.DB
	d      dialect.Dialect
	tx     *sql.Tx
	logger *slog.Logger
	stats  *QueryStats
	slowAt time.Duration
	slowFn SlowQueryHook
}

// An Option configures a Conn.
type Option func(*Conn)

// WithLogger enables debug logging of every statement through the given
// slog logger. Statement text is logged; bound values are not.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.logger = l }
}

// WithStats attaches a statistics collector to the connection.
func WithStats(s *QueryStats) Option {
	return func(c *Conn) { c.stats = s }
}

// WithSlowQuery calls hook for every statement whose execution exceeds
// threshold.
func WithSlowQuery(threshold time.Duration, hook SlowQueryHook) Option {
	return func(c *Conn) { c.slowAt, c.slowFn = threshold, hook }
}

// Open connects to the data source using the dialect registered under name.
// The dialect name doubles as the database/sql driver name, so importing the
// dialect package is enough to make both available.
func Open(name, dsn string, opts ...Option) (*Conn, error) {
	d, err := dialect.Lookup(name)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", name, err)
	}
	return newConn(db, d, opts), nil
}

// OpenDB wraps an existing database handle with the dialect registered
// under name. It is the entry point for tests that stub the driver.
func OpenDB(name string, db *sql.DB, opts ...Option) (*Conn, error) {
	d, err := dialect.Lookup(name)
	if err != nil {
		return nil, err
	}
	return newConn(db, d, opts), nil
}

func newConn(db *sql.DB, d dialect.Dialect, opts []Option) *Conn {
	c := &Conn{db: db, d: d}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the connection's dialect.
func (c *Conn) Dialect() dialect.Dialect { return c.d }

// DB returns the underlying database handle.
func (c *Conn) DB() *sql.DB { return c.db }

// InTx reports whether a transaction is open on the connection.
func (c *Conn) InTx() bool { return c.tx != nil }

// Exec runs a statement that returns no rows. Inside a transaction the
// statement joins it; otherwise it auto-commits.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	done := c.observe(ctx, query, false)
	var (
		res sql.Result
		err error
	)
	if c.tx != nil {
		res, err = c.tx.ExecContext(ctx, query, args...)
	} else {
		res, err = c.db.ExecContext(ctx, query, args...)
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

// Query runs a statement that returns rows. The caller owns the returned
// rows and must close them.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	done := c.observe(ctx, query, true)
	var (
		rows *sql.Rows
		err  error
	)
	if c.tx != nil {
		rows, err = c.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = c.db.QueryContext(ctx, query, args...)
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return rows, nil
}

// Begin opens a transaction. It fails with ErrTxStarted if one is already
// open.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return ErrTxStarted
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dialect/sql: begin: %w", err)
	}
	c.tx = tx
	if c.logger != nil {
		c.logger.DebugContext(ctx, "transaction started")
	}
	return nil
}

// Commit commits the open transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return ErrTxNotStarted
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("dialect/sql: commit: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return ErrTxNotStarted
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("dialect/sql: rollback: %w", err)
	}
	return nil
}

// Close releases the database handle. An open transaction is rolled back
// first, so every exit path leaves the handle clean.
func (c *Conn) Close() error {
	var rberr error
	if c.tx != nil {
		rberr = c.Rollback()
	}
	return errors.Join(rberr, c.db.Close())
}

// observe starts timing one statement and returns the completion callback
// feeding the logger, the stats collector and the slow query hook.
func (c *Conn) observe(ctx context.Context, query string, isQuery bool) func(error) {
	if c.logger == nil && c.stats == nil && c.slowFn == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		if c.logger != nil {
			c.logger.DebugContext(ctx, "statement executed",
				slog.String("query", query),
				slog.Duration("elapsed", elapsed),
				slog.Bool("failed", err != nil),
			)
		}
		if c.stats != nil {
			c.stats.record(isQuery, elapsed, err, c.slowAt)
		}
		if c.slowFn != nil && c.slowAt > 0 && elapsed >= c.slowAt {
			c.slowFn(ctx, query, elapsed)
		}
	}
}
