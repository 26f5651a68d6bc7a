package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/arllen133/entrybook/clause"
)

// ErrNotFound is returned by Take, First, Last and Repository.FindOne when
// no row matches.
var ErrNotFound = errors.New("store: record not found")

// QueryBuilder renders and runs a SELECT over T's table.
//
// Builder methods modify the receiver and return it for chaining; start a
// new builder with Repository.Query for an independent query.
type QueryBuilder[T any] struct {
	session *Session
	schema  Schema[T]
	builder sq.SelectBuilder
	columns []string
	table   string

	// err holds the first error hit while building; terminal methods
	// return it.
	err error
}

// Query starts a SELECT over T's table. T must have a registered schema.
func Query[T any](session *Session) *QueryBuilder[T] {
	schema := LoadSchema[T]()
	table := schema.TableName()
	return &QueryBuilder[T]{
		session: session,
		schema:  schema,
		builder: sq.Select().From(table).PlaceholderFormat(session.dialect.PlaceholderFormat()),
		table:   table,
	}
}

// Where adds a condition; successive calls are joined with AND.
//
//	q.Where(entrybook.Entries.Age.Gt(18)).Where(entrybook.Entries.Notes.IsNotNull())
func (q *QueryBuilder[T]) Where(expr clause.Expression) *QueryBuilder[T] {
	if q.err != nil {
		return q
	}
	sql, args, err := expr.Build()
	if err != nil {
		q.err = err
		return q
	}
	q.builder = q.builder.Where(sq.Expr(sql, args...))
	return q
}

// OrderBy appends ORDER BY terms.
func (q *QueryBuilder[T]) OrderBy(orders ...clause.OrderByColumn) *QueryBuilder[T] {
	if q.err != nil {
		return q
	}
	for _, order := range orders {
		sql, _, err := order.Build()
		if err != nil {
			q.err = err
			return q
		}
		q.builder = q.builder.OrderBy(sql)
	}
	return q
}

func (q *QueryBuilder[T]) Limit(n uint64) *QueryBuilder[T] {
	q.builder = q.builder.Limit(n)
	return q
}

func (q *QueryBuilder[T]) Offset(n uint64) *QueryBuilder[T] {
	q.builder = q.builder.Offset(n)
	return q
}

// Select narrows the selected columns; by default every schema column is
// read.
func (q *QueryBuilder[T]) Select(columns ...clause.Columnar) *QueryBuilder[T] {
	q.columns = ResolveColumnNames(columns)
	return q
}

// Find returns every matching row. No match yields an empty, non-nil slice.
func (q *QueryBuilder[T]) Find(ctx context.Context) ([]*T, error) {
	query, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}

	results := make([]*T, 0)
	if err := q.session.Select(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("store: select %s: %w", q.table, err)
	}
	return results, nil
}

// Take returns one matching row in no particular order, or ErrNotFound.
func (q *QueryBuilder[T]) Take(ctx context.Context) (*T, error) {
	results, err := q.Limit(1).Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

// First returns the matching row with the lowest key, or ErrNotFound.
func (q *QueryBuilder[T]) First(ctx context.Context) (*T, error) {
	return q.OrderBy(clause.OrderByColumn{Column: q.schema.PK(nil).Column}).Take(ctx)
}

// Last returns the matching row with the highest key, or ErrNotFound.
func (q *QueryBuilder[T]) Last(ctx context.Context) (*T, error) {
	return q.OrderBy(clause.OrderByColumn{Column: q.schema.PK(nil).Column, Desc: true}).Take(ctx)
}

// Count returns the number of matching rows, ignoring Limit and Offset.
func (q *QueryBuilder[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	query, args, err := q.builder.Columns("COUNT(*)").RemoveLimit().RemoveOffset().ToSql()
	if err != nil {
		return 0, fmt.Errorf("store: build count: %w", err)
	}

	var count int64
	if err := q.session.Get(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("store: count %s: %w", q.table, err)
	}
	return count, nil
}

// ToSQL renders the statement without running it.
func (q *QueryBuilder[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	cols := q.columns
	if len(cols) == 0 {
		cols = q.schema.SelectColumns()
	}
	return q.builder.Columns(cols...).ToSql()
}
