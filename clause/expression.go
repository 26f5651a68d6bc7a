// Package clause holds the SQL expression nodes the store package feeds
// into squirrel. Every node renders itself with "?" placeholders; the
// session's dialect rewrites them when a driver needs another format.
package clause

import (
	"fmt"
	"strings"
)

// Columnar is anything that can name a column.
type Columnar interface {
	ColumnName() string
}

// Column is a column reference, optionally qualified by its table.
type Column struct {
	Table string
	Name  string
}

func (c Column) Column() Column { return c }

// ColumnName returns "table.name" when a table is set, otherwise "name".
func (c Column) ColumnName() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

var _ Columnar = Column{}

// Expression renders a fragment of SQL together with its bound arguments.
type Expression interface {
	Build() (sql string, args []any, err error)
}

// Eq is "column = value".
type Eq struct {
	Column Column
	Value  any
}

func (e Eq) Build() (string, []any, error) {
	if e.Column.Name == "" {
		return "", nil, fmt.Errorf("clause: eq without column")
	}
	return e.Column.ColumnName() + " = ?", []any{e.Value}, nil
}

// Gt is "column > value".
type Gt struct {
	Column Column
	Value  any
}

func (g Gt) Build() (string, []any, error) {
	return g.Column.ColumnName() + " > ?", []any{g.Value}, nil
}

// Lt is "column < value".
type Lt struct {
	Column Column
	Value  any
}

func (l Lt) Build() (string, []any, error) {
	return l.Column.ColumnName() + " < ?", []any{l.Value}, nil
}

// IsNull is "column IS NULL".
type IsNull struct {
	Column Column
}

func (i IsNull) Build() (string, []any, error) {
	return i.Column.ColumnName() + " IS NULL", nil, nil
}

// IsNotNull is "column IS NOT NULL".
type IsNotNull struct {
	Column Column
}

func (i IsNotNull) Build() (string, []any, error) {
	return i.Column.ColumnName() + " IS NOT NULL", nil, nil
}

// And joins its members with AND. An empty And matches every row.
type And []Expression

func (a And) Build() (string, []any, error) {
	return join(a, " AND ", "1 = 1")
}

// Or joins its members with OR. An empty Or matches nothing.
type Or []Expression

func (o Or) Build() (string, []any, error) {
	return join(o, " OR ", "1 = 0")
}

func join(exprs []Expression, sep, empty string) (string, []any, error) {
	if len(exprs) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(exprs))
	var args []any
	for _, expr := range exprs {
		sql, exprArgs, err := expr.Build()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		args = append(args, exprArgs...)
	}
	return strings.Join(parts, sep), args, nil
}

// Assignment is one "column = value" pair of an UPDATE ... SET list.
type Assignment struct {
	Column Column
	Value  any
}

func (a Assignment) Build() (string, []any, error) {
	return a.Column.ColumnName() + " = ?", []any{a.Value}, nil
}

// OrderByColumn is one ORDER BY term.
type OrderByColumn struct {
	Column Column
	Desc   bool
}

func (o OrderByColumn) Build() (string, []any, error) {
	if o.Desc {
		return o.Column.ColumnName() + " DESC", nil, nil
	}
	return o.Column.ColumnName(), nil, nil
}
