package store

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/arllen133/entrybook/clause"
)

// PK is a primary-key column paired with a model's key value.
type PK = clause.Eq

// Schema maps model T to its table and back.
type Schema[T any] interface {
	TableName() string

	// SelectColumns lists the columns read into T, in scan order.
	SelectColumns() []string

	// InsertRow returns the columns and values of an INSERT for m.
	InsertRow(m *T) ([]string, []any)

	// UpdateMap returns every mutable column of m; updates replace the
	// full row.
	UpdateMap(m *T) map[string]any

	// PK returns the key column with m's key value. m may be nil when only
	// the column is needed.
	PK(m *T) PK
	SetPK(m *T, val int64)
	AutoIncrement() bool
}

var (
	schemasMu sync.RWMutex
	schemas   = make(map[reflect.Type]any)
)

// RegisterSchema makes schema the mapping for T. Models register from an
// init function in the file that declares their schema.
func RegisterSchema[T any](schema Schema[T]) {
	schemasMu.Lock()
	defer schemasMu.Unlock()
	schemas[reflect.TypeFor[T]()] = schema
}

// LoadSchema returns the registered schema for T and panics when there is
// none; an unregistered model is a programming error.
func LoadSchema[T any]() Schema[T] {
	typ := reflect.TypeFor[T]()
	schemasMu.RLock()
	s, ok := schemas[typ]
	schemasMu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("store: schema not registered for type %v", typ))
	}
	return s.(Schema[T])
}
