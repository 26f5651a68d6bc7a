package store

import "github.com/arllen133/entrybook/clause"

// ResolveColumnNames returns the column names of args, or nil for none.
func ResolveColumnNames(args []clause.Columnar) []string {
	if len(args) == 0 {
		return nil
	}
	cols := make([]string, len(args))
	for i, arg := range args {
		cols[i] = arg.ColumnName()
	}
	return cols
}

// sqlizer lets a clause.Expression be passed where squirrel wants a
// Sqlizer.
type sqlizer struct {
	expr clause.Expression
}

func (s sqlizer) ToSql() (string, []any, error) {
	return s.expr.Build()
}
