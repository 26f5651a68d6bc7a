// Package store is the small data-access layer entrybook is written on.
//
// A Session wraps one opened database (or one transaction on it), a
// Schema[T] maps a model to its table, and Repository[T] / QueryBuilder[T]
// render parameterized statements with squirrel and scan results with sqlx.
// SessionOptions decide how the statements of a Session are observed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Executor is the statement surface shared by *sqlx.DB and *sqlx.Tx.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Session binds statements to a database handle or to an open transaction.
type Session struct {
	db       *sqlx.DB // for starting transactions
	executor Executor // db, or the current tx
	dialect  Dialect
	obs      *ObservabilityConfig

	// txCtx is the context the transaction was started with; Commit and
	// Rollback report under it.
	txCtx context.Context
}

// NewSession wraps an already opened database. The caller keeps ownership
// of db.
func NewSession(db *sql.DB, dialect Dialect, opts ...SessionOption) *Session {
	var xdb *sqlx.DB
	if db != nil {
		xdb = sqlx.NewDb(db, dialect.Name())
	}
	s := &Session{
		db:      xdb,
		dialect: dialect,
		obs:     defaultObservabilityConfig(),
	}
	if xdb != nil {
		s.executor = xdb
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the database file at path with dialect's driver, verifies it
// can be reached and returns a session that owns the handle. The pool is
// capped at a single connection: a session is one connection scope.
func Open(ctx context.Context, dialect Dialect, path string, busy time.Duration, opts ...SessionOption) (*Session, error) {
	db, err := sql.Open(dialect.Name(), dialect.DSN(path, busy))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := NewSession(db, dialect, opts...)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	return s, nil
}

// Dialect returns the session's dialect.
func (s *Session) Dialect() Dialect { return s.dialect }

// Ping forces a connection to be established.
func (s *Session) Ping(ctx context.Context) error {
	return s.observe(ctx, "ping", "", func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// Close releases the underlying database. Closing a transaction session is
// an error; commit or roll it back instead.
func (s *Session) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, ok := s.executor.(*sqlx.Tx); ok {
		return fmt.Errorf("store: close called on a transaction session")
	}
	return s.db.Close()
}

func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := s.observe(ctx, "query", query, func(ctx context.Context) error {
		var err error
		rows, err = s.executor.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}

func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	var row *sql.Row
	_ = s.observe(ctx, "query_row", query, func(ctx context.Context) error {
		row = s.executor.QueryRowContext(ctx, query, args...)
		return row.Err()
	})
	return row
}

func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := s.observe(ctx, "exec", query, func(ctx context.Context) error {
		var err error
		result, err = s.executor.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}

func (s *Session) Select(ctx context.Context, dest any, query string, args ...any) error {
	return s.observe(ctx, "select", query, func(ctx context.Context) error {
		return s.executor.SelectContext(ctx, dest, query, args...)
	})
}

func (s *Session) Get(ctx context.Context, dest any, query string, args ...any) error {
	return s.observe(ctx, "get", query, func(ctx context.Context) error {
		return s.executor.GetContext(ctx, dest, query, args...)
	})
}

// Begin starts a transaction and returns a session bound to it.
func (s *Session) Begin(ctx context.Context) (*Session, error) {
	var tx *sqlx.Tx
	err := s.observe(ctx, "begin", "", func(ctx context.Context) error {
		var err error
		tx, err = s.db.BeginTxx(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Session{
		db:       s.db,
		executor: tx,
		dialect:  s.dialect,
		obs:      s.obs,
		txCtx:    ctx,
	}, nil
}

func (s *Session) Commit() error {
	tx, ok := s.executor.(*sqlx.Tx)
	if !ok {
		return sql.ErrTxDone
	}
	return s.observe(s.txCtx, "commit", "", func(context.Context) error {
		return tx.Commit()
	})
}

func (s *Session) Rollback() error {
	tx, ok := s.executor.(*sqlx.Tx)
	if !ok {
		return sql.ErrTxDone
	}
	return s.observe(s.txCtx, "rollback", "", func(context.Context) error {
		return tx.Rollback()
	})
}

// Transaction runs fn inside a transaction, committing when fn returns nil
// and rolling back on error or panic. A session that is already inside a
// transaction runs fn directly.
func (s *Session) Transaction(ctx context.Context, fn func(tx *Session) error) (err error) {
	if _, ok := s.executor.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
