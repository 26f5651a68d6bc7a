package field

import "github.com/arllen133/entrybook/clause"

// String is a text column.
type String struct {
	column clause.Column
}

// NewString returns a text column reference for table.name.
func NewString(table, name string) String {
	return String{column: clause.Column{Table: table, Name: name}}
}

func (s String) Column() clause.Column { return s.column }

func (s String) ColumnName() string { return s.column.ColumnName() }

var _ clause.Columnar = String{}

func (s String) WithColumn(name string) String {
	s.column.Name = name
	return s
}

func (s String) WithTable(table string) String {
	s.column.Table = table
	return s
}

func (s String) Eq(value string) clause.Expression {
	return clause.Eq{Column: s.column, Value: value}
}

func (s String) IsNull() clause.Expression {
	return clause.IsNull{Column: s.column}
}

func (s String) IsNotNull() clause.Expression {
	return clause.IsNotNull{Column: s.column}
}

func (s String) Set(value string) clause.Assignment {
	return clause.Assignment{Column: s.column, Value: value}
}

// SetNull assigns NULL in an UPDATE; only valid for nullable columns.
func (s String) SetNull() clause.Assignment {
	return clause.Assignment{Column: s.column, Value: nil}
}

func (s String) Asc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: s.column}
}

func (s String) Desc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: s.column, Desc: true}
}
