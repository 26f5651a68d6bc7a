// Package field provides typed column references. A model's schema file
// declares one value per column so callers build conditions with the
// column's Go type instead of raw strings.
package field

import (
	"github.com/arllen133/entrybook/clause"
	"golang.org/x/exp/constraints"
)

// Number is an integer or float column.
type Number[T constraints.Integer | constraints.Float] struct {
	column clause.Column
}

// NewNumber returns a numeric column reference for table.name.
func NewNumber[T constraints.Integer | constraints.Float](table, name string) Number[T] {
	return Number[T]{column: clause.Column{Table: table, Name: name}}
}

func (n Number[T]) Column() clause.Column { return n.column }

func (n Number[T]) ColumnName() string { return n.column.ColumnName() }

var _ clause.Columnar = Number[int]{}

// WithColumn returns a copy pointing at another column name.
func (n Number[T]) WithColumn(name string) Number[T] {
	n.column.Name = name
	return n
}

// WithTable returns a copy qualified by table.
func (n Number[T]) WithTable(table string) Number[T] {
	n.column.Table = table
	return n
}

func (n Number[T]) Eq(value T) clause.Expression {
	return clause.Eq{Column: n.column, Value: value}
}

func (n Number[T]) Gt(value T) clause.Expression {
	return clause.Gt{Column: n.column, Value: value}
}

func (n Number[T]) Lt(value T) clause.Expression {
	return clause.Lt{Column: n.column, Value: value}
}

func (n Number[T]) IsNull() clause.Expression {
	return clause.IsNull{Column: n.column}
}

func (n Number[T]) IsNotNull() clause.Expression {
	return clause.IsNotNull{Column: n.column}
}

// Set assigns value in an UPDATE.
func (n Number[T]) Set(value T) clause.Assignment {
	return clause.Assignment{Column: n.column, Value: value}
}

// SetNull assigns NULL in an UPDATE.
func (n Number[T]) SetNull() clause.Assignment {
	return clause.Assignment{Column: n.column, Value: nil}
}

func (n Number[T]) Asc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: n.column}
}

func (n Number[T]) Desc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: n.column, Desc: true}
}
